package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// ResultRepository persists best-known quiz results. The best-score
// policy is enforced by the calling service, not here.
type ResultRepository interface {
	// Get returns the result for the pair, or gorm.ErrRecordNotFound.
	Get(ctx context.Context, studentID, quizID uint) (models.QuizResult, error)
	Create(ctx context.Context, result *models.QuizResult) error
	Save(ctx context.Context, result *models.QuizResult) error
	ListByStudentUnit(ctx context.Context, studentID, unitID uint) ([]models.QuizResult, error)
	// AverageByStudentUnit returns the mean best score across the
	// unit's quizzes, or nil when the student has no results there.
	AverageByStudentUnit(ctx context.Context, studentID, unitID uint) (*float64, error)
	CountByStudentUnit(ctx context.Context, studentID, unitID uint) (int, error)
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository constructs a quiz result repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Get(ctx context.Context, studentID, quizID uint) (models.QuizResult, error) {
	var result models.QuizResult
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		First(&result).Error
	if err != nil {
		return models.QuizResult{}, err
	}
	return result, nil
}

func (r *resultRepository) Create(ctx context.Context, result *models.QuizResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *resultRepository) Save(ctx context.Context, result *models.QuizResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}

func (r *resultRepository) ListByStudentUnit(ctx context.Context, studentID, unitID uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Order("quiz_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) AverageByStudentUnit(ctx context.Context, studentID, unitID uint) (*float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).Model(&models.QuizResult{}).
		Select("AVG(score)").
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	return avg, nil
}

func (r *resultRepository) CountByStudentUnit(ctx context.Context, studentID, unitID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizResult{}).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
