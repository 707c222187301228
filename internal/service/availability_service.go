package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

const (
	availabilitySourceCourt  = "COURT"
	availabilitySourceEvent  = "EVENT"
	availabilitySourceClosed = "CLOSED"
)

// AvailabilityCalendar resolves effective open hours per (court, day).
// A court override beats the event default; neither means closed.
type AvailabilityCalendar struct {
	event     *models.Event
	defaults  map[int]models.TimeWindow
	overrides map[string]map[int]models.TimeWindow
}

// NewAvailabilityCalendar indexes the windows of one event.
func NewAvailabilityCalendar(event *models.Event, windows []models.AvailabilityWindow) *AvailabilityCalendar {
	cal := &AvailabilityCalendar{
		event:     event,
		defaults:  make(map[int]models.TimeWindow),
		overrides: make(map[string]map[int]models.TimeWindow),
	}
	for _, w := range windows {
		if w.CourtID == nil {
			cal.defaults[w.DayNumber] = w.Window()
			continue
		}
		days, ok := cal.overrides[*w.CourtID]
		if !ok {
			days = make(map[int]models.TimeWindow)
			cal.overrides[*w.CourtID] = days
		}
		days[w.DayNumber] = w.Window()
	}
	return cal
}

// Resolve returns the effective window for the court on the 1-based event day.
func (c *AvailabilityCalendar) Resolve(courtID string, day int) models.TimeWindow {
	window, _ := c.resolveWithSource(courtID, day)
	return window
}

func (c *AvailabilityCalendar) resolveWithSource(courtID string, day int) (models.TimeWindow, string) {
	if days, ok := c.overrides[courtID]; ok {
		if window, ok := days[day]; ok {
			return window, availabilitySourceCourt
		}
	}
	if window, ok := c.defaults[day]; ok {
		return window, availabilitySourceEvent
	}
	return models.ClosedWindow(), availabilitySourceClosed
}

// Bounds returns the resolved window as instants; ok is false when the court is closed that day.
func (c *AvailabilityCalendar) Bounds(courtID string, day int) (time.Time, time.Time, bool) {
	window := c.Resolve(courtID, day)
	if !window.Open {
		return time.Time{}, time.Time{}, false
	}
	return c.event.At(day, window.From), c.event.At(day, window.To), true
}

// Contains reports whether [start, end) lies inside the window of the start's day.
func (c *AvailabilityCalendar) Contains(courtID string, start, end time.Time) bool {
	if !end.After(start) {
		return false
	}
	day, _ := c.event.DayOf(start)
	if !c.event.HasDay(day) {
		return false
	}
	opensAt, closesAt, ok := c.Bounds(courtID, day)
	if !ok {
		return false
	}
	return !start.Before(opensAt) && !end.After(closesAt)
}

type availabilityStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.AvailabilityWindow, error)
	ReplaceForEvent(ctx context.Context, exec sqlx.ExtContext, eventID string, windows []models.AvailabilityWindow) error
}

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type courtReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Court, error)
	FindByID(ctx context.Context, id string) (*models.Court, error)
}

type gridInvalidator interface {
	Invalidate(ctx context.Context, eventID string)
}

// AvailabilityService manages organizer-authored court open hours.
type AvailabilityService struct {
	events    eventReader
	courts    courtReader
	windows   availabilityStore
	tx        txProvider
	grid      gridInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the availability service.
func NewAvailabilityService(events eventReader, courts courtReader, windows availabilityStore, tx txProvider, grid gridInvalidator, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{events: events, courts: courts, windows: windows, tx: tx, grid: grid, validator: validate, logger: logger}
}

// List returns every availability window of the event.
func (s *AvailabilityService) List(ctx context.Context, eventID string) ([]models.AvailabilityWindow, error) {
	if _, err := loadEvent(ctx, s.events, eventID); err != nil {
		return nil, err
	}
	windows, err := s.windows.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	return windows, nil
}

// Replace swaps the event's windows for the provided set.
func (s *AvailabilityService) Replace(ctx context.Context, eventID string, req dto.ReplaceAvailabilityRequest) ([]models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	courts, err := s.courts.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courts")
	}
	known := make(map[string]bool, len(courts))
	for _, court := range courts {
		known[court.ID] = true
	}

	seen := make(map[string]bool, len(req.Windows))
	windows := make([]models.AvailabilityWindow, 0, len(req.Windows))
	for idx, input := range req.Windows {
		if !event.HasDay(input.DayNumber) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("windows[%d]: day %d is outside the event", idx, input.DayNumber))
		}
		if !input.OpenFrom.Valid() || !input.OpenTo.Valid() || input.OpenFrom >= input.OpenTo {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("windows[%d]: openFrom must be before openTo", idx))
		}
		scope := "event"
		if input.CourtID != nil {
			if !known[*input.CourtID] {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("windows[%d]: court %s does not belong to the event", idx, *input.CourtID))
			}
			scope = *input.CourtID
		}
		key := fmt.Sprintf("%s/%d", scope, input.DayNumber)
		if seen[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("windows[%d]: duplicate window for day %d", idx, input.DayNumber))
		}
		seen[key] = true
		windows = append(windows, models.AvailabilityWindow{
			EventID:   eventID,
			CourtID:   input.CourtID,
			DayNumber: input.DayNumber,
			OpenFrom:  input.OpenFrom,
			OpenTo:    input.OpenTo,
		})
	}

	if err := withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		return s.windows.ReplaceForEvent(ctx, exec, eventID, windows)
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability windows")
	}
	if s.grid != nil {
		s.grid.Invalidate(ctx, eventID)
	}
	s.logger.Info("availability replaced", zap.String("event_id", eventID), zap.Int("windows", len(windows)))
	return windows, nil
}

// ResolveCourtDay reports the effective window for one court and day.
func (s *AvailabilityService) ResolveCourtDay(ctx context.Context, eventID, courtID string, day int) (*dto.ResolvedAvailability, error) {
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasDay(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d is outside the event", day))
	}
	court, err := s.courts.FindByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "court not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load court")
	}
	if court.EventID != eventID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "court not found")
	}
	windows, err := s.windows.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	window, source := NewAvailabilityCalendar(event, windows).resolveWithSource(courtID, day)
	return &dto.ResolvedAvailability{CourtID: courtID, Day: day, Source: source, Window: window}, nil
}

func loadEvent(ctx context.Context, events eventReader, eventID string) (*models.Event, error) {
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}
	event, err := events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}
