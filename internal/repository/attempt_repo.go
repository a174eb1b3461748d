package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// AttemptRepository persists quiz attempt rows. Attempt numbers are
// assigned inside a transaction so they stay gapless even if two
// writers slip past the service-level lock.
type AttemptRepository interface {
	Count(ctx context.Context, studentID, quizID uint) (int, error)
	// CountByQuiz counts attempts by any student against the quiz.
	CountByQuiz(ctx context.Context, quizID uint) (int, error)
	// CreateNext inserts the next attempt for the pair and returns it.
	// The attempt number is count+1 computed inside the transaction.
	CreateNext(ctx context.Context, studentID, quizID, unitID uint, startedAt time.Time) (models.QuizAttempt, error)
	Complete(ctx context.Context, attemptID uint, completedAt time.Time) error
	ListByStudentQuiz(ctx context.Context, studentID, quizID uint) ([]models.QuizAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository constructs an attempt repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Count(ctx context.Context, studentID, quizID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *attemptRepository) CountByQuiz(ctx context.Context, quizID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *attemptRepository) CreateNext(ctx context.Context, studentID, quizID, unitID uint, startedAt time.Time) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.QuizAttempt{}).
			Where("student_id = ? AND quiz_id = ?", studentID, quizID).
			Count(&count).Error; err != nil {
			return err
		}

		attempt = models.QuizAttempt{
			StudentID:  studentID,
			QuizID:     quizID,
			UnitID:     unitID,
			AttemptNum: int(count) + 1,
			StartedAt:  startedAt,
		}
		return tx.Create(&attempt).Error
	})
	if err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *attemptRepository) Complete(ctx context.Context, attemptID uint, completedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("id = ?", attemptID).
		Update("completed_at", completedAt).Error
}

func (r *attemptRepository) ListByStudentQuiz(ctx context.Context, studentID, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Order("attempt_num").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
