package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

// ScheduleMutator applies organizer overrides. Moves are never rolled back; conflicts are advisory.
type ScheduleMutator struct {
	stores     ScheduleStores
	encounters encounterWriter
	rules      SchedulingRules
	locker     EventLocker
	conflicts  conflictSource
	grid       gridInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleMutator wires the mutator.
func NewScheduleMutator(stores ScheduleStores, encounters encounterWriter, rules SchedulingRules, locker EventLocker, conflicts conflictSource, grid gridInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleMutator {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalEventLocker(nil)
	}
	return &ScheduleMutator{
		stores:     stores,
		encounters: encounters,
		rules:      rules.normalize(),
		locker:     locker,
		conflicts:  conflicts,
		grid:       grid,
		validator:  validate,
		logger:     logger,
	}
}

// MoveEncounter writes a new court and start unconditionally, then re-validates the encounter's division.
func (m *ScheduleMutator) MoveEncounter(ctx context.Context, encounterID string, req dto.MoveEncounterRequest) (*dto.MoveEncounterResult, error) {
	if err := m.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	enc, err := loadEncounter(ctx, m.encounters, encounterID)
	if err != nil {
		return nil, err
	}
	if err := ensureSchedulable(*enc); err != nil {
		return nil, err
	}
	court, err := m.stores.Courts.FindByID(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "court not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load court")
	}
	if court.EventID != enc.EventID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "court does not belong to the encounter's event")
	}

	release, err := m.locker.Lock(ctx, enc.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := loadSnapshot(ctx, m.stores, m.rules, enc.EventID)
	if err != nil {
		return nil, err
	}
	current, ok := snap.byID[encounterID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "encounter not found")
	}
	if err := ensureSchedulable(*current); err != nil {
		return nil, err
	}

	// a scheduled encounter keeps its current length when moved
	duration := snap.matchDuration(*current)
	if current.IsScheduled() && current.EstimatedEnd.After(*current.EstimatedStart) {
		duration = current.EstimatedEnd.Sub(*current.EstimatedStart)
	}
	start := req.StartTime.UTC()
	end := start.Add(duration)

	err = m.encounters.AssignSlot(ctx, models.SlotAssignment{EncounterID: encounterID, CourtID: court.ID, Start: start, End: end})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "encounter can no longer be moved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move encounter")
	}
	if m.grid != nil {
		m.grid.Invalidate(ctx, enc.EventID)
	}

	divisionID := current.DivisionID
	conflicts := []models.Conflict{}
	if m.conflicts != nil {
		found, err := m.conflicts.Validate(ctx, enc.EventID, &divisionID)
		if err != nil {
			m.logger.Warn("post-move validation failed", zap.String("encounter_id", encounterID), zap.Error(err))
		} else {
			conflicts = found
		}
	}

	m.logger.Info("encounter moved",
		zap.String("encounter_id", encounterID),
		zap.String("court_id", court.ID),
		zap.Time("start", start),
		zap.Int("conflicts", len(conflicts)),
	)
	return &dto.MoveEncounterResult{
		EncounterID:  encounterID,
		CourtID:      court.ID,
		StartTime:    start,
		EndTime:      end,
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}, nil
}

// ClearSchedule unsets court and time on every schedulable encounter of a division, optionally one phase.
func (m *ScheduleMutator) ClearSchedule(ctx context.Context, divisionID string, phaseID *string) (*dto.ClearScheduleResult, error) {
	if divisionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "division id is required")
	}
	division, err := m.stores.Divisions.FindByID(ctx, divisionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "division not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load division")
	}
	if phaseID != nil {
		phases, err := m.stores.Divisions.ListPhasesByEvent(ctx, division.EventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load phases")
		}
		found := false
		for _, phase := range phases {
			if phase.ID == *phaseID && phase.DivisionID == divisionID {
				found = true
				break
			}
		}
		if !found {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "phase not found in division")
		}
	}

	release, err := m.locker.Lock(ctx, division.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	cleared, err := m.encounters.ClearByDivision(ctx, divisionID, phaseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
	}
	if cleared > 0 && m.grid != nil {
		m.grid.Invalidate(ctx, division.EventID)
	}
	m.logger.Info("division schedule cleared", zap.String("division_id", divisionID), zap.Int("cleared", cleared))
	return &dto.ClearScheduleResult{DivisionID: divisionID, PhaseID: phaseID, Cleared: cleared}, nil
}

// UnscheduleEncounter clears one encounter's court and time.
func (m *ScheduleMutator) UnscheduleEncounter(ctx context.Context, encounterID string) (bool, error) {
	enc, err := loadEncounter(ctx, m.encounters, encounterID)
	if err != nil {
		return false, err
	}
	if err := ensureSchedulable(*enc); err != nil {
		return false, err
	}

	release, err := m.locker.Lock(ctx, enc.EventID)
	if err != nil {
		return false, err
	}
	defer release()

	changed, err := m.encounters.ClearSlot(ctx, encounterID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unschedule encounter")
	}
	if changed && m.grid != nil {
		m.grid.Invalidate(ctx, enc.EventID)
	}
	return changed, nil
}
