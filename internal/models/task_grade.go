package models

import "time"

// TaskGrade is a teacher-assigned score for one uploaded task file,
// keyed by (student, unit, filename). The grading engine only consumes
// these; it never creates them on its own.
type TaskGrade struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_task_grade_key" json:"student_id"`
	UnitID    uint      `gorm:"not null;uniqueIndex:idx_task_grade_key" json:"unit_id"`
	Filename  string    `gorm:"size:512;not null;uniqueIndex:idx_task_grade_key" json:"filename"`
	Score     int       `gorm:"not null" json:"score"`
	GradedBy  *uint     `json:"graded_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
