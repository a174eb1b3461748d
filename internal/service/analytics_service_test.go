package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/models"
)

func dayEvent(studentID, unitID uint, occurredAt time.Time) models.ActivityEvent {
	return models.ActivityEvent{
		StudentID:  studentID,
		UnitID:     unitID,
		Kind:       models.ActivityHeartbeat,
		OccurredAt: occurredAt,
	}
}

func newAnalyticsFixture() (*fakeActivityRepo, *fakeProgressRepo, *fakeUnitRepo) {
	units := &fakeUnitRepo{units: []models.Unit{
		{ID: 3, Name: "Unidad 3", Position: 3},
		{ID: 4, Name: "Unidad 4", Position: 4},
	}}
	return &fakeActivityRepo{}, newFakeProgressRepo(), units
}

func TestSummaryAveragesProgressAndTime(t *testing.T) {
	events, progress, units := newAnalyticsFixture()
	ctx := context.Background()

	require.NoError(t, progress.SetCompletion(ctx, 1, 3, 100, time.Now()))
	require.NoError(t, progress.AddTime(ctx, 1, 3, 90, time.Now()))
	require.NoError(t, progress.SetCompletion(ctx, 1, 4, 50, time.Now()))
	require.NoError(t, progress.AddTime(ctx, 1, 4, 30, time.Now()))

	svc := NewAnalyticsService(events, progress, units, nil, time.Minute, testLogger())
	summary, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{})
	require.NoError(t, err)

	require.Equal(t, 75.0, summary.OverallProgress)
	require.Equal(t, 1, summary.CompletedUnits)
	require.Equal(t, 120, summary.TimeSpentMin)
	require.Equal(t, 0, summary.StreakDays, "no events means no streak")
}

func TestSummaryFilteredTimeUsesEventLog(t *testing.T) {
	events, progress, units := newAnalyticsFixture()
	ctx := context.Background()

	now := time.Now().UTC()
	early := dayEvent(1, 3, now.Add(-48*time.Hour))
	early.DurationMin = intPtr(40)
	recent := dayEvent(1, 3, now.Add(-time.Hour))
	recent.DurationMin = intPtr(25)
	require.NoError(t, events.Append(ctx, &early))
	require.NoError(t, events.Append(ctx, &recent))

	svc := NewAnalyticsService(events, progress, units, nil, time.Minute, testLogger())
	from := now.Add(-24 * time.Hour)
	summary, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{From: &from})
	require.NoError(t, err)
	require.Equal(t, 25, summary.TimeSpentMin, "only events inside the range count")
}

func TestSummaryStreakRespectsDateRange(t *testing.T) {
	events, progress, units := newAnalyticsFixture()
	ctx := context.Background()

	now := time.Now().UTC()
	fresh := dayEvent(1, 3, now.Add(-time.Hour))
	old := dayEvent(1, 3, now.AddDate(0, 0, -10))
	require.NoError(t, events.Append(ctx, &fresh))
	require.NoError(t, events.Append(ctx, &old))

	svc := NewAnalyticsService(events, progress, units, nil, time.Minute, testLogger())

	unfiltered, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, unfiltered.StreakDays)

	// A range covering only the old event leaves no recent day to
	// anchor the streak.
	from := now.AddDate(0, 0, -12)
	to := now.AddDate(0, 0, -8)
	filtered, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{From: &from, To: &to})
	require.NoError(t, err)
	require.Equal(t, 0, filtered.StreakDays)
}

func TestSummaryCachesUnfilteredResult(t *testing.T) {
	events, progress, units := newAnalyticsFixture()
	ctx := context.Background()
	require.NoError(t, progress.AddTime(ctx, 1, 3, 60, time.Now()))

	server := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	svc := NewAnalyticsService(events, progress, units, cache, time.Minute, testLogger())

	first, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 60, first.TimeSpentMin)

	// A later write is invisible until the cache expires.
	require.NoError(t, progress.AddTime(ctx, 1, 3, 60, time.Now()))
	cached, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 60, cached.TimeSpentMin)

	server.FastForward(2 * time.Minute)
	fresh, err := svc.Summary(ctx, 1, dto.AnalyticsSummaryRequest{})
	require.NoError(t, err)
	require.Equal(t, 120, fresh.TimeSpentMin)
}

func TestStreakConsecutiveDays(t *testing.T) {
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	events := []models.ActivityEvent{
		dayEvent(1, 3, today.Add(2 * time.Hour)),
		dayEvent(1, 3, today.AddDate(0, 0, -1).Add(3 * time.Hour)),
		dayEvent(1, 3, today.AddDate(0, 0, -2).Add(4 * time.Hour)),
	}
	require.Equal(t, 3, streakDays(events, now))
}

func TestStreakBrokenWhenLatestTooOld(t *testing.T) {
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	events := []models.ActivityEvent{
		dayEvent(1, 3, today.AddDate(0, 0, -2).Add(time.Hour)),
	}
	require.Equal(t, 0, streakDays(events, now))
}

func TestStreakGapStopsTheCount(t *testing.T) {
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	events := []models.ActivityEvent{
		dayEvent(1, 3, today.Add(time.Hour)),
		dayEvent(1, 3, today.AddDate(0, 0, -2).Add(time.Hour)),
	}
	require.Equal(t, 1, streakDays(events, now), "a missing day breaks the streak")
}

func TestStreakAnchoredAtYesterday(t *testing.T) {
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	events := []models.ActivityEvent{
		dayEvent(1, 3, today.AddDate(0, 0, -1).Add(time.Hour)),
		dayEvent(1, 3, today.AddDate(0, 0, -2).Add(time.Hour)),
	}
	require.Equal(t, 2, streakDays(events, now), "a streak ending yesterday still counts")
}

func TestStreakMultipleEventsSameDayCountOnce(t *testing.T) {
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	events := []models.ActivityEvent{
		dayEvent(1, 3, today.Add(time.Hour)),
		dayEvent(1, 3, today.Add(2*time.Hour)),
		dayEvent(1, 3, today.Add(3*time.Hour)),
	}
	require.Equal(t, 1, streakDays(events, now))
}

func TestUnitsBreakdownJoinsProgress(t *testing.T) {
	events, progress, units := newAnalyticsFixture()
	ctx := context.Background()

	require.NoError(t, progress.SetCompletion(ctx, 1, 3, 80, time.Now()))
	require.NoError(t, progress.SetScore(ctx, 1, 3, 77, time.Now()))

	svc := NewAnalyticsService(events, progress, units, nil, time.Minute, testLogger())
	breakdown, err := svc.Units(ctx, 1)
	require.NoError(t, err)
	require.Len(t, breakdown.Units, 2)

	require.Equal(t, 80, breakdown.Units[0].CompletionPct)
	require.Equal(t, 77, breakdown.Units[0].Score)
	require.NotNil(t, breakdown.Units[0].LastActivityAt)

	require.Equal(t, 0, breakdown.Units[1].CompletionPct, "untouched units report zeros")
	require.Nil(t, breakdown.Units[1].LastActivityAt)
}
