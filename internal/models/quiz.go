package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz holds a question set owned by a unit. Questions are stored as
// raw JSON because the schema evolved through several shapes; parsing
// into a typed form happens in the grading package.
type Quiz struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UnitID      uint           `gorm:"not null;index" json:"unit_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Questions   datatypes.JSON `gorm:"type:json" json:"questions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Unit        Unit           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// QuizAssignment scopes a quiz to a unit with an availability window
// and an attempt budget. Nil bounds mean unbounded on that side; a nil
// or zero MaxAttempts means unlimited attempts.
type QuizAssignment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	QuizID        uint       `gorm:"not null;index:idx_quiz_unit" json:"quiz_id"`
	UnitID        uint       `gorm:"not null;index:idx_quiz_unit" json:"unit_id"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	MaxAttempts   *int       `json:"max_attempts"`
	TimeLimitMin  *int       `json:"time_limit_min"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// WindowOpen reports whether the assignment window contains the given
// instant.
func (a QuizAssignment) WindowOpen(reference time.Time) bool {
	if a.StartAt != nil && reference.Before(*a.StartAt) {
		return false
	}
	if a.EndAt != nil && reference.After(*a.EndAt) {
		return false
	}
	return true
}

// UnlimitedAttempts reports whether the assignment places no cap on
// attempts.
func (a QuizAssignment) UnlimitedAttempts() bool {
	return a.MaxAttempts == nil || *a.MaxAttempts == 0
}
