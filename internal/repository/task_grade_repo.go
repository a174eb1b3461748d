package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// TaskGradeRepository persists teacher-assigned task scores.
type TaskGradeRepository interface {
	Upsert(ctx context.Context, grade *models.TaskGrade) error
	// Average returns the mean task score for the pair, or nil when no
	// graded task exists.
	Average(ctx context.Context, studentID, unitID uint) (*float64, error)
	Count(ctx context.Context, studentID, unitID uint) (int, error)
	ListByStudentUnit(ctx context.Context, studentID, unitID uint) ([]models.TaskGrade, error)
}

type taskGradeRepository struct {
	db *gorm.DB
}

// NewTaskGradeRepository constructs a task grade repository.
func NewTaskGradeRepository(db *gorm.DB) TaskGradeRepository {
	return &taskGradeRepository{db: db}
}

func (r *taskGradeRepository) Upsert(ctx context.Context, grade *models.TaskGrade) error {
	var existing models.TaskGrade
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ? AND filename = ?", grade.StudentID, grade.UnitID, grade.Filename).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Score = grade.Score
		existing.GradedBy = grade.GradedBy
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return err
		}
		*grade = existing
		return nil
	case IsNotFound(err):
		return r.db.WithContext(ctx).Create(grade).Error
	default:
		return err
	}
}

func (r *taskGradeRepository) Average(ctx context.Context, studentID, unitID uint) (*float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).Model(&models.TaskGrade{}).
		Select("AVG(score)").
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	return avg, nil
}

func (r *taskGradeRepository) Count(ctx context.Context, studentID, unitID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskGrade{}).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *taskGradeRepository) ListByStudentUnit(ctx context.Context, studentID, unitID uint) ([]models.TaskGrade, error) {
	var grades []models.TaskGrade
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Order("filename").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}
