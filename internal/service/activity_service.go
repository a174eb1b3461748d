package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/models"
	"github.com/aula-lms/aula-go-api/internal/observability"
	"github.com/aula-lms/aula-go-api/internal/repository"
)

// ErrInvalidActivityKind indicates an event kind outside the accepted set.
var ErrInvalidActivityKind = errors.New("invalid activity kind")

// ActivityService appends study activity events and keeps the
// per-unit time aggregate in step with them.
type ActivityService interface {
	// Track validates and persists one event. Events carrying a
	// positive duration also grow the unit's accumulated study time.
	Track(ctx context.Context, studentID uint, payload dto.ActivityTrackRequest) (dto.ActivityEventResponse, error)
	// History returns the student's events, newest first, optionally
	// scoped to a unit and a time range.
	History(ctx context.Context, studentID uint, unitID *uint, from, to *time.Time) ([]dto.ActivityEventResponse, error)
}

type activityService struct {
	events    repository.ActivityRepository
	progress  repository.ProgressRepository
	units     repository.UnitRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewActivityService constructs the activity tracking service.
func NewActivityService(events repository.ActivityRepository, progress repository.ProgressRepository, units repository.UnitRepository, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		events:    events,
		progress:  progress,
		units:     units,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
		now:       time.Now,
	}
}

func (s *activityService) Track(ctx context.Context, studentID uint, payload dto.ActivityTrackRequest) (dto.ActivityEventResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityEventResponse{}, err
	}

	kind := strings.ToLower(strings.TrimSpace(payload.Kind))
	if !models.ValidActivityKind(kind) {
		return dto.ActivityEventResponse{}, ErrInvalidActivityKind
	}

	if _, err := s.units.GetByID(ctx, payload.UnitID); err != nil {
		if repository.IsNotFound(err) {
			return dto.ActivityEventResponse{}, ErrUnitNotFound
		}
		return dto.ActivityEventResponse{}, err
	}

	now := s.now().UTC()
	event := models.ActivityEvent{
		StudentID:   studentID,
		UnitID:      payload.UnitID,
		Kind:        kind,
		DurationMin: payload.DurationMin,
		Metadata:    sanitizeMetadata(payload.Metadata),
		OccurredAt:  now,
	}
	if err := s.events.Append(ctx, &event); err != nil {
		s.logger.Error().Err(err).
			Uint("student_id", studentID).
			Uint("unit_id", payload.UnitID).
			Msg("failed to persist activity event")
		return dto.ActivityEventResponse{}, err
	}
	observability.ActivityEvents().WithLabelValues(kind).Inc()

	if payload.DurationMin != nil && *payload.DurationMin > 0 {
		if err := s.progress.AddTime(ctx, studentID, payload.UnitID, *payload.DurationMin, now); err != nil {
			// The event itself is already durable; the aggregate can be
			// rebuilt from the log, so this is not fatal.
			s.logger.Warn().Err(err).
				Uint("student_id", studentID).
				Uint("unit_id", payload.UnitID).
				Msg("failed to accumulate study time")
		}
	} else if err := s.progress.AddTime(ctx, studentID, payload.UnitID, 0, now); err != nil {
		s.logger.Warn().Err(err).
			Uint("student_id", studentID).
			Uint("unit_id", payload.UnitID).
			Msg("failed to refresh last activity")
	}

	return dto.NewActivityEventResponse(event), nil
}

func (s *activityService) History(ctx context.Context, studentID uint, unitID *uint, from, to *time.Time) ([]dto.ActivityEventResponse, error) {
	events, err := s.events.Query(ctx, repository.ActivityFilter{
		StudentID: studentID,
		UnitID:    unitID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ActivityEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, dto.NewActivityEventResponse(event))
	}
	return responses, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
