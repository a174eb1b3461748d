package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/models"
	"github.com/aula-lms/aula-go-api/internal/repository"
)

const dayFormat = "2006-01-02"

// AnalyticsService derives study analytics from the activity log and
// the per-unit progress aggregates.
type AnalyticsService interface {
	// Summary reports overall progress, completed units, accumulated
	// study time and the current daily streak.
	Summary(ctx context.Context, studentID uint, req dto.AnalyticsSummaryRequest) (dto.AnalyticsSummaryResponse, error)
	// Units reports the per-unit breakdown.
	Units(ctx context.Context, studentID uint) (dto.UnitAnalyticsResponse, error)
}

type analyticsService struct {
	events   repository.ActivityRepository
	progress repository.ProgressRepository
	units    repository.UnitRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService builds the analytics aggregator. cache may be
// nil, in which case every call recomputes.
func NewAnalyticsService(events repository.ActivityRepository, progress repository.ProgressRepository, units repository.UnitRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		events:   events,
		progress: progress,
		units:    units,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *analyticsService) Summary(ctx context.Context, studentID uint, req dto.AnalyticsSummaryRequest) (dto.AnalyticsSummaryResponse, error) {
	// Only the unfiltered summary is cached; filtered requests vary
	// too much to be worth keying.
	cacheable := req.UnitID == nil && req.From == nil && req.To == nil
	cacheKey := fmt.Sprintf("analytics:summary:%d", studentID)

	if cacheable && s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.AnalyticsSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("analytics cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
		}
	}

	rows, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.AnalyticsSummaryResponse{}, err
	}

	response := dto.AnalyticsSummaryResponse{}
	if len(rows) > 0 {
		var pctSum int
		for _, row := range rows {
			pctSum += row.CompletionPct
		}
		response.OverallProgress = round2(float64(pctSum) / float64(len(rows)))
	}

	completed, err := s.progress.CountCompleted(ctx, studentID)
	if err != nil {
		return dto.AnalyticsSummaryResponse{}, err
	}
	response.CompletedUnits = completed

	response.TimeSpentMin, err = s.timeSpent(ctx, studentID, req, rows)
	if err != nil {
		return dto.AnalyticsSummaryResponse{}, err
	}

	events, err := s.events.Query(ctx, repository.ActivityFilter{
		StudentID: studentID,
		UnitID:    req.UnitID,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		return dto.AnalyticsSummaryResponse{}, err
	}
	response.StreakDays = streakDays(events, s.now().UTC())

	if cacheable && s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
			}
		}
	}

	return response, nil
}

func (s *analyticsService) Units(ctx context.Context, studentID uint) (dto.UnitAnalyticsResponse, error) {
	units, err := s.units.List(ctx)
	if err != nil {
		return dto.UnitAnalyticsResponse{}, err
	}
	rows, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.UnitAnalyticsResponse{}, err
	}

	byUnit := make(map[uint]models.UnitProgress, len(rows))
	for _, row := range rows {
		byUnit[row.UnitID] = row
	}

	response := dto.UnitAnalyticsResponse{
		StudentID: studentID,
		Units:     make([]dto.UnitAnalytics, 0, len(units)),
	}
	for _, unit := range units {
		entry := dto.UnitAnalytics{
			UnitID:   unit.ID,
			UnitName: unit.Name,
		}
		if row, ok := byUnit[unit.ID]; ok {
			entry.CompletionPct = row.CompletionPct
			entry.Score = row.Score
			entry.TimeSpentMin = row.TimeSpentMin
			last := row.LastActivityAt
			entry.LastActivityAt = &last
		}
		response.Units = append(response.Units, entry)
	}
	return response, nil
}

// timeSpent totals study minutes. Filtered requests go to the event
// log; the unfiltered case reads the cheaper progress aggregates.
func (s *analyticsService) timeSpent(ctx context.Context, studentID uint, req dto.AnalyticsSummaryRequest, rows []models.UnitProgress) (int, error) {
	if req.UnitID == nil && req.From == nil && req.To == nil {
		var total int
		for _, row := range rows {
			total += row.TimeSpentMin
		}
		return total, nil
	}
	return s.events.SumDuration(ctx, repository.ActivityFilter{
		StudentID: studentID,
		UnitID:    req.UnitID,
		From:      req.From,
		To:        req.To,
	})
}

// streakDays counts consecutive study days ending today or yesterday.
// A latest event older than yesterday means the streak is broken.
func streakDays(events []models.ActivityEvent, now time.Time) int {
	if len(events) == 0 {
		return 0
	}

	days := make(map[string]struct{}, len(events))
	var latest time.Time
	for _, event := range events {
		day := event.OccurredAt.UTC().Truncate(24 * time.Hour)
		days[day.Format(dayFormat)] = struct{}{}
		if day.After(latest) {
			latest = day
		}
	}

	today := now.Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	if !latest.Equal(today) && !latest.Equal(yesterday) {
		return 0
	}

	streak := 0
	for cursor := latest; ; cursor = cursor.AddDate(0, 0, -1) {
		if _, ok := days[cursor.Format(dayFormat)]; !ok {
			break
		}
		streak++
	}
	return streak
}
