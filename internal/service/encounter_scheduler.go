package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

type conflictSource interface {
	Validate(ctx context.Context, eventID string, divisionID *string) ([]models.Conflict, error)
}

type generationObserver interface {
	ObserveGeneration(mode string, placed, unscheduled int, duration time.Duration)
}

const (
	generationModeBatch  = "batch"
	generationModeSingle = "single"
)

// EncounterScheduler assigns courts and start times to unscheduled encounters.
type EncounterScheduler struct {
	stores     ScheduleStores
	encounters encounterWriter
	rules      SchedulingRules
	locker     EventLocker
	conflicts  conflictSource
	grid       gridInvalidator
	metrics    generationObserver
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEncounterScheduler wires the scheduler.
func NewEncounterScheduler(
	stores ScheduleStores,
	encounters encounterWriter,
	rules SchedulingRules,
	locker EventLocker,
	conflicts conflictSource,
	grid gridInvalidator,
	metrics generationObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *EncounterScheduler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalEventLocker(nil)
	}
	return &EncounterScheduler{
		stores:     stores,
		encounters: encounters,
		rules:      rules.normalize(),
		locker:     locker,
		conflicts:  conflicts,
		grid:       grid,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Generate places every unscheduled encounter matching the request. Placements are written one at a
// time; when ctx ends mid-run the partial result is returned together with the error and the
// encounters already written stay scheduled.
func (s *EncounterScheduler) Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule request")
	}
	started := time.Now()

	release, err := s.locker.Lock(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := loadSnapshot(ctx, s.stores, s.rules, req.EventID)
	if err != nil {
		return nil, err
	}
	if err := checkScheduleFilter(snap, req); err != nil {
		return nil, err
	}

	candidates := orderCandidates(snap, selectCandidates(snap, req))
	occ := newOccupancy(snap, "")
	result := &dto.ScheduleResult{
		Placed:      []dto.PlacedEncounter{},
		Unscheduled: []dto.UnscheduledEncounter{},
		Conflicts:   []models.Conflict{},
	}

	queued := make(map[string]bool, len(candidates))
	for _, enc := range candidates {
		queued[enc.ID] = true
	}
	unscheduled := func(enc models.Encounter, reason string) {
		delete(queued, enc.ID)
		result.Unscheduled = append(result.Unscheduled, dto.UnscheduledEncounter{EncounterID: enc.ID, Reason: reason})
		s.logger.Debug("encounter left unscheduled", zap.String("encounter_id", enc.ID), zap.String("reason", reason))
	}

	candidateBlocks := make(map[string]map[string]bool, len(candidates))
	for _, enc := range candidates {
		set := make(map[string]bool)
		for _, block := range blocksFor(snap.blocks, enc.DivisionID, enc.PhaseID) {
			set[block.ID] = true
		}
		candidateBlocks[enc.ID] = set
	}
	// Dependent-block encounters wait while a queued encounter can still extend a predecessor
	// block. When only such waits remain (both sides may use the same blocks) the wait is lifted.
	holdHandoffs := true

	pending := candidates
	for len(pending) > 0 {
		var deferred []models.Encounter
		progressed := false
		handoffHeld := false
		for _, enc := range pending {
			if err := ctx.Err(); err != nil {
				result.Message = fmt.Sprintf("generation cancelled after %d placements", result.ScheduledCount)
				s.observe(generationModeBatch, result, started)
				s.invalidate(ctx, req.EventID)
				return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation cancelled")
			}

			gate, waiting, blocker := occ.predecessorGate(enc, queued)
			if blocker != "" {
				progressed = true
				unscheduled(enc, fmt.Sprintf("predecessor %s has no estimated end", blocker))
				continue
			}
			if waiting {
				deferred = append(deferred, enc)
				continue
			}
			if holdHandoffs && handoffWaiting(snap, enc, queued, candidateBlocks) {
				handoffHeld = true
				deferred = append(deferred, enc)
				continue
			}
			progressed = true

			slot, ok := occ.findSlot(enc, gate)
			if !ok {
				unscheduled(enc, noSlotReason)
				continue
			}
			if err := s.write(ctx, enc, slot); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					unscheduled(enc, "encounter is no longer schedulable")
					continue
				}
				s.invalidate(ctx, req.EventID)
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist encounter slot")
			}
			delete(queued, enc.ID)
			occ.commit(enc, slot)
			result.ScheduledCount++
			result.Placed = append(result.Placed, placedEncounter(enc.ID, slot))
		}
		if !progressed && handoffHeld {
			holdHandoffs = false
			pending = deferred
			continue
		}
		if !progressed {
			for _, enc := range deferred {
				unscheduled(enc, "waiting on a predecessor that could not be scheduled")
			}
			break
		}
		pending = deferred
	}

	result.Success = len(result.Unscheduled) == 0
	result.Message = fmt.Sprintf("scheduled %d of %d encounters", result.ScheduledCount, len(candidates))
	s.invalidate(ctx, req.EventID)
	result.Conflicts = s.collectConflicts(ctx, req.EventID, req.DivisionID)
	s.observe(generationModeBatch, result, started)

	s.logger.Info("schedule generated",
		zap.String("event_id", req.EventID),
		zap.Int("candidates", len(candidates)),
		zap.Int("scheduled", result.ScheduledCount),
		zap.Int("unscheduled", len(result.Unscheduled)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Duration("took", time.Since(started)),
	)
	return result, nil
}

const noSlotReason = "no court and time satisfies availability, block, rest and overlap constraints"

// AssignSingleEncounter places one encounter against the current state of all others. Failing to
// find a slot is reported through Success=false, not as an error.
func (s *EncounterScheduler) AssignSingleEncounter(ctx context.Context, encounterID string, req dto.AssignSingleRequest) (*dto.ScheduleResult, error) {
	started := time.Now()
	enc, err := loadEncounter(ctx, s.encounters, encounterID)
	if err != nil {
		return nil, err
	}
	if err := ensureSchedulable(*enc); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, enc.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := loadSnapshot(ctx, s.stores, s.rules, enc.EventID)
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

	result := &dto.ScheduleResult{
		Placed:      []dto.PlacedEncounter{},
		Unscheduled: []dto.UnscheduledEncounter{},
		Conflicts:   []models.Conflict{},
	}
	occ := newOccupancy(snap, encounterID)
	gate, _, blocker := occ.predecessorGate(*current, nil)
	if blocker != "" {
		reason := fmt.Sprintf("predecessor %s has no estimated end", blocker)
		result.Message = reason
		result.Unscheduled = append(result.Unscheduled, dto.UnscheduledEncounter{EncounterID: encounterID, Reason: reason})
		s.observe(generationModeSingle, result, started)
		return result, nil
	}
	if req.NotBefore != nil && req.NotBefore.After(gate) {
		gate = *req.NotBefore
	}

	slot, ok := occ.findSlot(*current, gate)
	if !ok {
		result.Message = noSlotReason
		result.Unscheduled = append(result.Unscheduled, dto.UnscheduledEncounter{EncounterID: encounterID, Reason: noSlotReason})
		s.observe(generationModeSingle, result, started)
		return result, nil
	}
	if err := s.write(ctx, *current, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "encounter can no longer be scheduled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist encounter slot")
	}

	result.Success = true
	result.ScheduledCount = 1
	result.Placed = append(result.Placed, placedEncounter(encounterID, slot))
	result.Message = fmt.Sprintf("encounter placed on %s at %s", slot.court.Label, slot.start.In(snap.event.Location()).Format("2006-01-02 15:04"))
	s.invalidate(ctx, enc.EventID)
	divisionID := current.DivisionID
	result.Conflicts = s.collectConflicts(ctx, enc.EventID, &divisionID)
	s.observe(generationModeSingle, result, started)
	return result, nil
}

func (s *EncounterScheduler) write(ctx context.Context, enc models.Encounter, slot slotChoice) error {
	return s.encounters.AssignSlot(ctx, models.SlotAssignment{
		EncounterID: enc.ID,
		CourtID:     slot.court.ID,
		Start:       slot.start,
		End:         slot.end,
	})
}

func (s *EncounterScheduler) collectConflicts(ctx context.Context, eventID string, divisionID *string) []models.Conflict {
	if s.conflicts == nil {
		return []models.Conflict{}
	}
	conflicts, err := s.conflicts.Validate(ctx, eventID, divisionID)
	if err != nil {
		s.logger.Warn("post-schedule validation failed", zap.String("event_id", eventID), zap.Error(err))
		return []models.Conflict{}
	}
	return conflicts
}

func (s *EncounterScheduler) invalidate(ctx context.Context, eventID string) {
	if s.grid != nil {
		s.grid.Invalidate(ctx, eventID)
	}
}

func (s *EncounterScheduler) observe(mode string, result *dto.ScheduleResult, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(mode, result.ScheduledCount, len(result.Unscheduled), time.Since(started))
	}
}

func placedEncounter(encounterID string, slot slotChoice) dto.PlacedEncounter {
	return dto.PlacedEncounter{EncounterID: encounterID, CourtID: slot.court.ID, StartTime: slot.start, EndTime: slot.end}
}

func checkScheduleFilter(snap *eventSnapshot, req dto.ScheduleRequest) error {
	if req.DivisionID != nil {
		if _, ok := snap.divisions[*req.DivisionID]; !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "division not found")
		}
	}
	if req.PhaseID != nil {
		phase, ok := snap.phases[*req.PhaseID]
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "phase not found")
		}
		if req.DivisionID != nil && phase.DivisionID != *req.DivisionID {
			return appErrors.Clone(appErrors.ErrValidation, "phase does not belong to the requested division")
		}
	}
	return nil
}

// handoffWaiting reports whether enc may land in a block whose predecessor block can still be
// extended by another queued encounter.
func handoffWaiting(snap *eventSnapshot, enc models.Encounter, queued map[string]bool, candidateBlocks map[string]map[string]bool) bool {
	for _, block := range blocksFor(snap.blocks, enc.DivisionID, enc.PhaseID) {
		if block.DependsOnBlockID == nil {
			continue
		}
		for id := range queued {
			if id != enc.ID && candidateBlocks[id][*block.DependsOnBlockID] {
				return true
			}
		}
	}
	return false
}

// selectCandidates returns schedulable encounters without a complete court/time assignment.
func selectCandidates(snap *eventSnapshot, req dto.ScheduleRequest) []models.Encounter {
	var out []models.Encounter
	for _, enc := range snap.encounters {
		if enc.Status.Frozen() || enc.Status == models.EncounterStatusCancelled || enc.IsScheduled() {
			continue
		}
		if req.DivisionID != nil && enc.DivisionID != *req.DivisionID {
			continue
		}
		if req.PhaseID != nil && (enc.PhaseID == nil || *enc.PhaseID != *req.PhaseID) {
			continue
		}
		out = append(out, enc)
	}
	return out
}

// orderCandidates sorts by block handoff order, then phase order, round, encounter number and id.
func orderCandidates(snap *eventSnapshot, candidates []models.Encounter) []models.Encounter {
	ordered, err := orderBlocks(snap.blocks)
	if err != nil {
		ordered = snap.blocks
	}
	rank := make(map[string]int, len(ordered))
	for i, block := range ordered {
		rank[block.ID] = i
	}
	blockRank := func(enc models.Encounter) int {
		best := len(ordered)
		for _, block := range blocksFor(snap.blocks, enc.DivisionID, enc.PhaseID) {
			if r := rank[block.ID]; r < best {
				best = r
			}
		}
		return best
	}

	type keyed struct {
		enc   models.Encounter
		block int
		phase int
	}
	items := make([]keyed, len(candidates))
	for i, enc := range candidates {
		items[i] = keyed{enc: enc, block: blockRank(enc), phase: snap.phaseOrder(enc.PhaseID)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.block != b.block {
			return a.block < b.block
		}
		if a.phase != b.phase {
			return a.phase < b.phase
		}
		if a.enc.RoundNumber != b.enc.RoundNumber {
			return a.enc.RoundNumber < b.enc.RoundNumber
		}
		if a.enc.EncounterNumber != b.enc.EncounterNumber {
			return a.enc.EncounterNumber < b.enc.EncounterNumber
		}
		return a.enc.ID < b.enc.ID
	})
	out := make([]models.Encounter, len(items))
	for i, item := range items {
		out[i] = item.enc
	}
	return out
}

func loadEncounter(ctx context.Context, encounters encounterReader, encounterID string) (*models.Encounter, error) {
	if encounterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "encounter id is required")
	}
	enc, err := encounters.FindByID(ctx, encounterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "encounter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load encounter")
	}
	return enc, nil
}

// ensureSchedulable rejects encounters whose court and time are frozen or that no longer play.
func ensureSchedulable(enc models.Encounter) error {
	if enc.Status.Frozen() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("encounter is %s; court and time are frozen", enc.Status))
	}
	if enc.Status == models.EncounterStatusCancelled {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "encounter is cancelled")
	}
	return nil
}
