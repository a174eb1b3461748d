package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// ActivityFilter narrows activity event queries. UnitID, From and To
// are optional.
type ActivityFilter struct {
	StudentID uint
	UnitID    *uint
	From      *time.Time
	To        *time.Time
}

// ActivityRepository stores the append-only activity event log.
type ActivityRepository interface {
	Append(ctx context.Context, event *models.ActivityEvent) error
	Query(ctx context.Context, filter ActivityFilter) ([]models.ActivityEvent, error)
	// SumDuration totals the duration minutes of matching events.
	SumDuration(ctx context.Context, filter ActivityFilter) (int, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs an activity event repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, event *models.ActivityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *activityRepository) Query(ctx context.Context, filter ActivityFilter) ([]models.ActivityEvent, error) {
	var events []models.ActivityEvent
	err := r.scope(ctx, filter).Order("occurred_at DESC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *activityRepository) SumDuration(ctx context.Context, filter ActivityFilter) (int, error) {
	var total *int64
	err := r.scope(ctx, filter).
		Select("SUM(duration_min)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return int(*total), nil
}

func (r *activityRepository) scope(ctx context.Context, filter ActivityFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ActivityEvent{}).
		Where("student_id = ?", filter.StudentID)
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_at <= ?", *filter.To)
	}
	return query
}
