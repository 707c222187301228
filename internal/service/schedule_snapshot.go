package service

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

type courtGroupStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.CourtGroup, error)
	CreateWithMembers(ctx context.Context, exec sqlx.ExtContext, group *models.CourtGroup) error
}

type divisionReader interface {
	FindByID(ctx context.Context, id string) (*models.Division, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Division, error)
	ListPhasesByEvent(ctx context.Context, eventID string) ([]models.Phase, error)
	ListUnitsByEvent(ctx context.Context, eventID string) ([]models.Unit, error)
}

type blockStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.BlockAssignment, error)
	DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) error
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.BlockAssignment) error
}

type encounterReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Encounter, error)
	FindByID(ctx context.Context, id string) (*models.Encounter, error)
}

type encounterWriter interface {
	encounterReader
	AssignSlot(ctx context.Context, assignment models.SlotAssignment) error
	ClearByDivision(ctx context.Context, divisionID string, phaseID *string) (int, error)
	ClearSlot(ctx context.Context, encounterID string) (bool, error)
}

// ScheduleStores groups the read side every scheduling component works from.
type ScheduleStores struct {
	Events       eventReader
	Courts       courtReader
	Groups       courtGroupStore
	Divisions    divisionReader
	Blocks       blockStore
	Availability availabilityStore
	Encounters   encounterReader
}

// SchedulingRules carries the configured fallbacks shared by scheduler and validator.
type SchedulingRules struct {
	SlotGranularity     time.Duration
	DefaultMatchMinutes int
	DefaultRestMinutes  int
}

func (r SchedulingRules) normalize() SchedulingRules {
	if r.SlotGranularity <= 0 {
		r.SlotGranularity = 5 * time.Minute
	}
	if r.DefaultMatchMinutes <= 0 {
		r.DefaultMatchMinutes = 30
	}
	if r.DefaultRestMinutes < 0 {
		r.DefaultRestMinutes = 0
	}
	return r
}

// eventSnapshot is the persisted state of one event, read fresh for every operation.
type eventSnapshot struct {
	event      *models.Event
	courts     []models.Court
	courtByID  map[string]models.Court
	groups     []models.CourtGroup
	groupByID  map[string]models.CourtGroup
	divisions  map[string]models.Division
	phases     map[string]models.Phase
	units      map[string]models.Unit
	blocks     []models.BlockAssignment
	calendar   *AvailabilityCalendar
	encounters []models.Encounter
	byID       map[string]*models.Encounter
	rules      SchedulingRules
}

func loadSnapshot(ctx context.Context, stores ScheduleStores, rules SchedulingRules, eventID string) (*eventSnapshot, error) {
	event, err := loadEvent(ctx, stores.Events, eventID)
	if err != nil {
		return nil, err
	}
	snap := &eventSnapshot{
		event:     event,
		courtByID: make(map[string]models.Court),
		groupByID: make(map[string]models.CourtGroup),
		divisions: make(map[string]models.Division),
		phases:    make(map[string]models.Phase),
		units:     make(map[string]models.Unit),
		byID:      make(map[string]*models.Encounter),
		rules:     rules.normalize(),
	}
	internal := func(err error, message string) error {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}

	if snap.courts, err = stores.Courts.ListByEvent(ctx, eventID); err != nil {
		return nil, internal(err, "failed to load courts")
	}
	for _, court := range snap.courts {
		snap.courtByID[court.ID] = court
	}
	if stores.Groups != nil {
		if snap.groups, err = stores.Groups.ListByEvent(ctx, eventID); err != nil {
			return nil, internal(err, "failed to load court groups")
		}
	}
	for _, group := range snap.groups {
		snap.groupByID[group.ID] = group
	}

	divisions, err := stores.Divisions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, internal(err, "failed to load divisions")
	}
	for _, division := range divisions {
		snap.divisions[division.ID] = division
	}
	phases, err := stores.Divisions.ListPhasesByEvent(ctx, eventID)
	if err != nil {
		return nil, internal(err, "failed to load phases")
	}
	for _, phase := range phases {
		snap.phases[phase.ID] = phase
	}
	units, err := stores.Divisions.ListUnitsByEvent(ctx, eventID)
	if err != nil {
		return nil, internal(err, "failed to load units")
	}
	for _, unit := range units {
		snap.units[unit.ID] = unit
	}

	if stores.Blocks != nil {
		blocks, err := stores.Blocks.ListByEvent(ctx, eventID)
		if err != nil {
			return nil, internal(err, "failed to load block assignments")
		}
		snap.blocks = sortBlocks(blocks)
	}

	windows, err := stores.Availability.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, internal(err, "failed to load availability windows")
	}
	snap.calendar = NewAvailabilityCalendar(event, windows)

	if snap.encounters, err = stores.Encounters.ListByEvent(ctx, eventID); err != nil {
		return nil, internal(err, "failed to load encounters")
	}
	for i := range snap.encounters {
		snap.byID[snap.encounters[i].ID] = &snap.encounters[i]
	}
	return snap, nil
}

// restMinutes is the division's minimum rest between two encounters of one unit.
func (s *eventSnapshot) restMinutes(divisionID string) int {
	if division, ok := s.divisions[divisionID]; ok && division.MinRestMinutes > 0 {
		return division.MinRestMinutes
	}
	return s.rules.DefaultRestMinutes
}

// participants lists the unit and member keys whose time an encounter occupies.
func (s *eventSnapshot) participants(encounter models.Encounter) []string {
	keys := make([]string, 0, 4)
	seen := make(map[string]bool, 4)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for _, unitID := range encounter.UnitIDs() {
		add("unit:" + unitID)
		for _, member := range s.units[unitID].MemberUserIDs {
			if member != "" {
				add("user:" + member)
			}
		}
	}
	return keys
}

func (s *eventSnapshot) phaseOrder(phaseID *string) int {
	if phaseID == nil {
		return 0
	}
	return s.phases[*phaseID].PhaseOrder
}

func (s *eventSnapshot) activeCourts() []models.Court {
	active := make([]models.Court, 0, len(s.courts))
	for _, court := range s.courts {
		if court.IsActive {
			active = append(active, court)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].SortOrder != active[j].SortOrder {
			return active[i].SortOrder < active[j].SortOrder
		}
		return naturalLess(active[i].Label, active[j].Label)
	})
	return active
}

// matchDuration resolves encounter, then phase, then division estimates before the configured default.
func (s *eventSnapshot) matchDuration(encounter models.Encounter) time.Duration {
	if encounter.DurationMinutes != nil && *encounter.DurationMinutes > 0 {
		return time.Duration(*encounter.DurationMinutes) * time.Minute
	}
	if encounter.PhaseID != nil {
		if phase, ok := s.phases[*encounter.PhaseID]; ok && phase.EstimatedMatchMinutes != nil && *phase.EstimatedMatchMinutes > 0 {
			return time.Duration(*phase.EstimatedMatchMinutes) * time.Minute
		}
	}
	if division, ok := s.divisions[encounter.DivisionID]; ok && division.EstimatedMatchMinutes > 0 {
		return time.Duration(division.EstimatedMatchMinutes) * time.Minute
	}
	return time.Duration(s.rules.DefaultMatchMinutes) * time.Minute
}
