package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// ProgressRepository maintains the per-(student, unit) aggregates fed
// by the activity log and the grade synchronizer.
type ProgressRepository interface {
	// Get is a read-only lookup; unlike GetOrCreate it never writes a
	// row, so aggregation reads leave no trace.
	Get(ctx context.Context, studentID, unitID uint) (models.UnitProgress, error)
	GetOrCreate(ctx context.Context, studentID, unitID uint, now time.Time) (models.UnitProgress, error)
	// AddTime accumulates study minutes and refreshes the last
	// activity timestamp.
	AddTime(ctx context.Context, studentID, unitID uint, minutes int, now time.Time) error
	// SetScore stores the freshly computed unit score.
	SetScore(ctx context.Context, studentID, unitID uint, score int, now time.Time) error
	SetCompletion(ctx context.Context, studentID, unitID uint, pct int, now time.Time) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.UnitProgress, error)
	CountCompleted(ctx context.Context, studentID uint) (int, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs a unit progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, studentID, unitID uint) (models.UnitProgress, error) {
	var progress models.UnitProgress
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		First(&progress).Error
	if err != nil {
		return models.UnitProgress{}, err
	}
	return progress, nil
}

func (r *progressRepository) GetOrCreate(ctx context.Context, studentID, unitID uint, now time.Time) (models.UnitProgress, error) {
	var progress models.UnitProgress
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		First(&progress).Error
	if err == nil {
		return progress, nil
	}
	if !IsNotFound(err) {
		return models.UnitProgress{}, err
	}

	progress = models.UnitProgress{
		StudentID:      studentID,
		UnitID:         unitID,
		LastActivityAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&progress).Error; err != nil {
		return models.UnitProgress{}, err
	}
	return progress, nil
}

func (r *progressRepository) AddTime(ctx context.Context, studentID, unitID uint, minutes int, now time.Time) error {
	progress, err := r.GetOrCreate(ctx, studentID, unitID, now)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&progress).Updates(map[string]interface{}{
		"time_spent_min":   gorm.Expr("time_spent_min + ?", minutes),
		"last_activity_at": now,
	}).Error
}

func (r *progressRepository) SetScore(ctx context.Context, studentID, unitID uint, score int, now time.Time) error {
	progress, err := r.GetOrCreate(ctx, studentID, unitID, now)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&progress).Updates(map[string]interface{}{
		"score":            score,
		"last_activity_at": now,
	}).Error
}

func (r *progressRepository) SetCompletion(ctx context.Context, studentID, unitID uint, pct int, now time.Time) error {
	progress, err := r.GetOrCreate(ctx, studentID, unitID, now)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&progress).Updates(map[string]interface{}{
		"completion_pct":   pct,
		"last_activity_at": now,
	}).Error
}

func (r *progressRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.UnitProgress, error) {
	var rows []models.UnitProgress
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("unit_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *progressRepository) CountCompleted(ctx context.Context, studentID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UnitProgress{}).
		Where("student_id = ? AND completion_pct = 100", studentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
