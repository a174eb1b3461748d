package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// UnitRepository provides access to course units.
type UnitRepository interface {
	GetByID(ctx context.Context, id uint) (models.Unit, error)
	List(ctx context.Context) ([]models.Unit, error)
}

type unitRepository struct {
	db *gorm.DB
}

// NewUnitRepository constructs a unit repository.
func NewUnitRepository(db *gorm.DB) UnitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) GetByID(ctx context.Context, id uint) (models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

func (r *unitRepository) List(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.WithContext(ctx).Order("position").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}
