package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// QuizRepository provides access to quizzes and their assignments.
type QuizRepository interface {
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	ListByUnit(ctx context.Context, unitID uint) ([]models.Quiz, error)
	UpdateQuestions(ctx context.Context, quiz *models.Quiz) error
	// LatestAssignment returns the most recent assignment linking the
	// quiz to the unit, or gorm.ErrRecordNotFound when none exists.
	LatestAssignment(ctx context.Context, quizID, unitID uint) (models.QuizAssignment, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository constructs a quiz repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) ListByUnit(ctx context.Context, unitID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).Where("unit_id = ?", unitID).Order("id").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) UpdateQuestions(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Model(quiz).Update("questions", quiz.Questions).Error
}

func (r *quizRepository) LatestAssignment(ctx context.Context, quizID, unitID uint) (models.QuizAssignment, error) {
	var assignment models.QuizAssignment
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND unit_id = ?", quizID, unitID).
		Order("created_at DESC").
		First(&assignment).Error
	if err != nil {
		return models.QuizAssignment{}, err
	}
	return assignment, nil
}

// IsNotFound reports whether err is the storage layer's missing-record
// error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
