package models

import "time"

// UnitProgress is the per-(student, unit) aggregate the activity log
// feeds: accumulated minutes, completion percentage and the latest
// computed unit score. It is a convenience projection, not the source
// of truth for grades.
type UnitProgress struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"not null;uniqueIndex:idx_progress_student_unit" json:"student_id"`
	UnitID         uint      `gorm:"not null;uniqueIndex:idx_progress_student_unit" json:"unit_id"`
	CompletionPct  int       `gorm:"not null;default:0" json:"completion_pct"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	TimeSpentMin   int       `gorm:"not null;default:0" json:"time_spent_min"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
