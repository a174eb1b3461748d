package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// OverrideRepository persists manual final-grade overrides.
type OverrideRepository interface {
	// Get returns the override for the pair, or gorm.ErrRecordNotFound.
	Get(ctx context.Context, studentID, unitID uint) (models.GradeOverride, error)
	// Upsert merges the non-nil fields of the given override into the
	// stored row, creating it when absent.
	Upsert(ctx context.Context, override *models.GradeOverride) error
}

type overrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository constructs an override repository.
func NewOverrideRepository(db *gorm.DB) OverrideRepository {
	return &overrideRepository{db: db}
}

func (r *overrideRepository) Get(ctx context.Context, studentID, unitID uint) (models.GradeOverride, error) {
	var override models.GradeOverride
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		First(&override).Error
	if err != nil {
		return models.GradeOverride{}, err
	}
	return override, nil
}

func (r *overrideRepository) Upsert(ctx context.Context, override *models.GradeOverride) error {
	var existing models.GradeOverride
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", override.StudentID, override.UnitID).
		First(&existing).Error
	switch {
	case err == nil:
		if override.Score != nil {
			existing.Score = override.Score
		}
		if override.Approved != nil {
			existing.Approved = override.Approved
		}
		if override.SetBy != nil {
			existing.SetBy = override.SetBy
		}
		if override.Comment != "" {
			existing.Comment = override.Comment
		}
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return err
		}
		*override = existing
		return nil
	case IsNotFound(err):
		return r.db.WithContext(ctx).Create(override).Error
	default:
		return err
	}
}
