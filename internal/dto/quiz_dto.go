package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// QuizSubmitRequest carries a student's answer set. Answer values keep
// whatever type the client sent (index numbers, booleans, text) keyed
// by "pregunta_{i}".
type QuizSubmitRequest struct {
	QuizID  uint                   `json:"quiz_id" validate:"required,gt=0"`
	Answers map[string]interface{} `json:"answers" validate:"required"`
}

// QuizSubmitResponse reports the outcome of one submission.
type QuizSubmitResponse struct {
	QuizID     uint `json:"quiz_id"`
	UnitID     uint `json:"unit_id"`
	AttemptNum int  `json:"attempt_num"`
	// Score is this submission's score; BestScore is the retained
	// best across attempts.
	Score        int  `json:"score"`
	BestScore    int  `json:"best_score"`
	AttemptsUsed int  `json:"attempts_used"`
	MaxAttempts  *int `json:"max_attempts"`
}

// QuizAttemptResponse serializes one attempt row.
type QuizAttemptResponse struct {
	ID          uint       `json:"id"`
	AttemptNum  int        `json:"attempt_num"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// QuizDetailResponse is the quiz payload served to students, including
// the attempt metadata the client uses to gate the "start" button.
type QuizDetailResponse struct {
	ID           uint           `json:"id"`
	UnitID       uint           `json:"unit_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Questions    datatypes.JSON `json:"questions"`
	AttemptsUsed int            `json:"attempts_used"`
	MaxAttempts  *int           `json:"max_attempts"`
	TimeLimitMin *int           `json:"time_limit_min"`
	CanAttempt   bool           `json:"can_attempt"`
}

// QuizQuestionsRequest replaces a quiz's question set.
type QuizQuestionsRequest struct {
	Questions datatypes.JSON `json:"questions" validate:"required"`
}

// QuizQuestionsResponse reports the stored question set after a
// replacement.
type QuizQuestionsResponse struct {
	ID        uint           `json:"id"`
	UnitID    uint           `json:"unit_id"`
	Questions datatypes.JSON `json:"questions"`
}

// QuizManualGradeRequest carries a teacher's manual score for one
// student. Approved releases the result; an unapproved manual score is
// stored but withheld.
type QuizManualGradeRequest struct {
	Score    int    `json:"score" validate:"min=0,max=100"`
	Approved bool   `json:"approved"`
	Comment  string `json:"comment" validate:"max=500"`
}

// QuizManualGradeResponse reports the stored result after a manual
// grade.
type QuizManualGradeResponse struct {
	QuizID     uint       `json:"quiz_id"`
	StudentID  uint       `json:"student_id"`
	UnitID     uint       `json:"unit_id"`
	Score      int        `json:"score"`
	Manual     bool       `json:"manual"`
	Approved   bool       `json:"approved"`
	ApprovedBy *uint      `json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`
	Comment    string     `json:"comment"`
}

// NewQuizAttemptResponse converts an attempt model to its DTO.
func NewQuizAttemptResponse(attempt models.QuizAttempt) QuizAttemptResponse {
	return QuizAttemptResponse{
		ID:          attempt.ID,
		AttemptNum:  attempt.AttemptNum,
		StartedAt:   attempt.StartedAt,
		CompletedAt: attempt.CompletedAt,
	}
}
