package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

func TestAvailabilityCalendarCourtOverrideBeatsDefault(t *testing.T) {
	state := newMemEvent(2, 2)
	state.windows = append(state.windows, models.AvailabilityWindow{
		CourtID:   strPtr("court-2"),
		DayNumber: 1,
		OpenFrom:  models.NewTimeOfDay(12, 0),
		OpenTo:    models.NewTimeOfDay(20, 0),
	})
	calendar := NewAvailabilityCalendar(&state.event, state.windows)

	assert.Equal(t, models.TimeWindow{Open: true, From: models.NewTimeOfDay(9, 0), To: models.NewTimeOfDay(18, 0)}, calendar.Resolve("court-1", 1))
	assert.Equal(t, models.TimeWindow{Open: true, From: models.NewTimeOfDay(12, 0), To: models.NewTimeOfDay(20, 0)}, calendar.Resolve("court-2", 1))
	assert.Equal(t, models.NewTimeOfDay(9, 0), calendar.Resolve("court-2", 2).From)
	assert.False(t, calendar.Resolve("court-1", 3).Open)

	assert.True(t, calendar.Contains("court-2", state.at(1, 19, 0), state.at(1, 20, 0)))
	assert.False(t, calendar.Contains("court-1", state.at(1, 17, 30), state.at(1, 18, 30)))
	assert.False(t, calendar.Contains("court-1", state.at(1, 23, 30), state.at(2, 9, 30)))
	assert.False(t, calendar.Contains("court-1", state.at(1, 10, 0), state.at(1, 10, 0)))

	opensAt, closesAt, ok := calendar.Bounds("court-2", 1)
	require.True(t, ok)
	assert.True(t, state.at(1, 12, 0).Equal(opensAt))
	assert.True(t, state.at(1, 20, 0).Equal(closesAt))
}

func TestAvailabilityCalendarHonoursEventTimezone(t *testing.T) {
	state := newMemEvent(1, 1)
	state.event.Timezone = "America/New_York"
	calendar := NewAvailabilityCalendar(&state.event, state.windows)

	opensAt, _, ok := calendar.Bounds("court-1", 1)
	require.True(t, ok)
	assert.Equal(t, 9, opensAt.Hour())
	assert.Equal(t, "America/New_York", opensAt.Location().String())
}

func newAvailabilityFixture() (*memState, *AvailabilityService, *invalidationRecorder) {
	state := newMemEvent(2, 2)
	grid := &invalidationRecorder{}
	svc := NewAvailabilityService(memEvents{state}, memCourts{state}, memAvailability{state}, nil, grid, nil, nil)
	return state, svc, grid
}

func TestAvailabilityServiceReplace(t *testing.T) {
	state, svc, grid := newAvailabilityFixture()

	windows, err := svc.Replace(context.Background(), "event-1", dto.ReplaceAvailabilityRequest{Windows: []dto.AvailabilityWindowInput{
		{DayNumber: 1, OpenFrom: models.NewTimeOfDay(8, 0), OpenTo: models.NewTimeOfDay(22, 0)},
		{CourtID: strPtr("court-1"), DayNumber: 1, OpenFrom: models.NewTimeOfDay(10, 0), OpenTo: models.NewTimeOfDay(12, 0)},
	}})
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Len(t, state.windows, 2)
	assert.Equal(t, 1, grid.count())

	resolved, err := svc.ResolveCourtDay(context.Background(), "event-1", "court-1", 1)
	require.NoError(t, err)
	assert.Equal(t, availabilitySourceCourt, resolved.Source)

	resolved, err = svc.ResolveCourtDay(context.Background(), "event-1", "court-2", 1)
	require.NoError(t, err)
	assert.Equal(t, availabilitySourceEvent, resolved.Source)

	resolved, err = svc.ResolveCourtDay(context.Background(), "event-1", "court-2", 2)
	require.NoError(t, err)
	assert.Equal(t, availabilitySourceClosed, resolved.Source)
	assert.False(t, resolved.Window.Open)
}

func TestAvailabilityServiceReplaceValidation(t *testing.T) {
	cases := map[string][]dto.AvailabilityWindowInput{
		"day outside event": {{DayNumber: 3, OpenFrom: models.NewTimeOfDay(8, 0), OpenTo: models.NewTimeOfDay(9, 0)}},
		"inverted window":   {{DayNumber: 1, OpenFrom: models.NewTimeOfDay(9, 0), OpenTo: models.NewTimeOfDay(8, 0)}},
		"unknown court":     {{CourtID: strPtr("court-9"), DayNumber: 1, OpenFrom: models.NewTimeOfDay(8, 0), OpenTo: models.NewTimeOfDay(9, 0)}},
		"duplicate day": {
			{DayNumber: 1, OpenFrom: models.NewTimeOfDay(8, 0), OpenTo: models.NewTimeOfDay(9, 0)},
			{DayNumber: 1, OpenFrom: models.NewTimeOfDay(10, 0), OpenTo: models.NewTimeOfDay(11, 0)},
		},
	}
	for name, windows := range cases {
		t.Run(name, func(t *testing.T) {
			state, svc, grid := newAvailabilityFixture()
			_, err := svc.Replace(context.Background(), "event-1", dto.ReplaceAvailabilityRequest{Windows: windows})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Len(t, state.windows, 2)
			assert.Zero(t, grid.count())
		})
	}
}

func TestAvailabilityServiceUnknownEventAndCourt(t *testing.T) {
	_, svc, _ := newAvailabilityFixture()

	_, err := svc.List(context.Background(), "event-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.ResolveCourtDay(context.Background(), "event-1", "court-404", 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
