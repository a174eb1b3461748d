package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/models"
)

func newActivityFixture() (*fakeActivityRepo, *fakeProgressRepo, *fakeUnitRepo) {
	units := &fakeUnitRepo{units: []models.Unit{{ID: 3, Name: "Unidad 3", Position: 3}}}
	return &fakeActivityRepo{}, newFakeProgressRepo(), units
}

func TestTrackAppendsEventAndAccumulatesTime(t *testing.T) {
	events, progress, units := newActivityFixture()
	svc := NewActivityService(events, progress, units, testValidator(), testLogger())

	response, err := svc.Track(context.Background(), 1, dto.ActivityTrackRequest{
		UnitID:      3,
		Kind:        "heartbeat",
		DurationMin: intPtr(15),
	})
	require.NoError(t, err)
	require.Equal(t, "heartbeat", response.Kind)
	require.NotZero(t, response.ID)

	row, err := progress.Get(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, 15, row.TimeSpentMin)
}

func TestTrackWithoutDurationOnlyRefreshesActivity(t *testing.T) {
	events, progress, units := newActivityFixture()
	svc := NewActivityService(events, progress, units, testValidator(), testLogger())

	_, err := svc.Track(context.Background(), 1, dto.ActivityTrackRequest{UnitID: 3, Kind: "start"})
	require.NoError(t, err)

	row, err := progress.Get(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, 0, row.TimeSpentMin)
	require.False(t, row.LastActivityAt.IsZero())
}

func TestTrackRejectsUnknownKind(t *testing.T) {
	events, progress, units := newActivityFixture()
	svc := NewActivityService(events, progress, units, testValidator(), testLogger())

	_, err := svc.Track(context.Background(), 1, dto.ActivityTrackRequest{UnitID: 3, Kind: "siesta"})
	require.Error(t, err)
	require.Empty(t, events.events)
}

func TestTrackRejectsUnknownUnit(t *testing.T) {
	events, progress, units := newActivityFixture()
	svc := NewActivityService(events, progress, units, testValidator(), testLogger())

	_, err := svc.Track(context.Background(), 1, dto.ActivityTrackRequest{UnitID: 99, Kind: "start"})
	require.ErrorIs(t, err, ErrUnitNotFound)
}

func TestTrackRedactsSensitiveMetadata(t *testing.T) {
	events, progress, units := newActivityFixture()
	svc := NewActivityService(events, progress, units, testValidator(), testLogger())

	_, err := svc.Track(context.Background(), 1, dto.ActivityTrackRequest{
		UnitID: 3,
		Kind:   "manual",
		Metadata: map[string]interface{}{
			"note":          "repaso",
			"teacher_email": "prof@example.com",
		},
	})
	require.NoError(t, err)
	require.Len(t, events.events, 1)
	require.Equal(t, "repaso", events.events[0].Metadata["note"])
	require.Equal(t, "***", events.events[0].Metadata["teacher_email"])
}

func TestHistoryFiltersByUnit(t *testing.T) {
	events, progress, units := newActivityFixture()
	units.units = append(units.units, models.Unit{ID: 4, Name: "Unidad 4", Position: 4})
	svc := NewActivityService(events, progress, units, testValidator(), testLogger())
	ctx := context.Background()

	_, err := svc.Track(ctx, 1, dto.ActivityTrackRequest{UnitID: 3, Kind: "start"})
	require.NoError(t, err)
	_, err = svc.Track(ctx, 1, dto.ActivityTrackRequest{UnitID: 4, Kind: "start"})
	require.NoError(t, err)

	unitID := uint(3)
	history, err := svc.History(ctx, 1, &unitID, nil, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, uint(3), history[0].UnitID)

	all, err := svc.History(ctx, 1, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
