package models

import "time"

// QuizAttempt records one opening of a quiz by a student. AttemptNum
// is 1-based and strictly increasing per (student, quiz) with no gaps;
// rows are never deleted and only CompletedAt is ever set after
// creation.
type QuizAttempt struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudentID   uint       `gorm:"not null;index:idx_attempt_student_quiz" json:"student_id"`
	QuizID      uint       `gorm:"not null;index:idx_attempt_student_quiz" json:"quiz_id"`
	UnitID      uint       `gorm:"not null" json:"unit_id"`
	AttemptNum  int        `gorm:"not null" json:"attempt_num"`
	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AttemptPhase is the explicit state of the attempt budget for one
// (student, quiz) pair.
type AttemptPhase string

const (
	// AttemptPhaseNone means the student has never opened the quiz.
	AttemptPhaseNone AttemptPhase = "none"
	// AttemptPhaseOpen means at least one attempt exists and the
	// budget is not exhausted.
	AttemptPhaseOpen AttemptPhase = "open"
	// AttemptPhaseExhausted means the budget is spent; no further
	// open or submit transitions are allowed.
	AttemptPhaseExhausted AttemptPhase = "exhausted"
)

// AttemptState is the governor's view of a (student, quiz) pair,
// derived from the attempt count and the assignment budget. Making the
// phase explicit keeps "never opened" and "exhausted" distinguishable
// instead of both being inferred from row counts.
type AttemptState struct {
	Phase AttemptPhase `json:"phase"`
	Used  int          `json:"used"`
	// Max is nil for unlimited budgets.
	Max *int `json:"max"`
}

// CanOpen reports whether another attempt may be opened.
func (s AttemptState) CanOpen() bool {
	return s.Phase != AttemptPhaseExhausted
}
