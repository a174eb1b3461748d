package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizResult is the best-known score for a (student, unit, quiz)
// triple. Automatic submissions only ever raise Score; a manual
// override may set any value. Approval is an independent axis: a
// result can carry a score without being released to the student yet.
type QuizResult struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StudentID  uint           `gorm:"not null;uniqueIndex:idx_result_student_quiz" json:"student_id"`
	QuizID     uint           `gorm:"not null;uniqueIndex:idx_result_student_quiz" json:"quiz_id"`
	UnitID     uint           `gorm:"not null;index" json:"unit_id"`
	Score      int            `gorm:"not null" json:"score"`
	Answers    datatypes.JSON `gorm:"type:json" json:"answers"`
	Approved   bool           `gorm:"not null;default:false" json:"approved"`
	ApprovedBy *uint          `json:"approved_by"`
	ApprovedAt *time.Time     `json:"approved_at"`
	Manual     bool           `gorm:"not null;default:false" json:"manual"`
	Comment    string         `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
