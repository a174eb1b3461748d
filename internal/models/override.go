package models

import "time"

// GradeOverride is a manually set final grade and/or approval flag for
// a (student, unit). A non-nil Approved wins over the computed
// approval decision; a non-nil Score is authoritative for display but
// never feeds back into the computed final.
type GradeOverride struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_override_student_unit" json:"student_id"`
	UnitID    uint      `gorm:"not null;uniqueIndex:idx_override_student_unit" json:"unit_id"`
	Score     *int      `json:"score"`
	Approved  *bool     `json:"approved"`
	SetBy     *uint     `json:"set_by"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
