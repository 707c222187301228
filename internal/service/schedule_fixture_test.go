package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// memState is an in-memory event used by the scheduling tests.
type memState struct {
	mu         sync.Mutex
	event      models.Event
	courts     []models.Court
	groups     []models.CourtGroup
	divisions  []models.Division
	phases     []models.Phase
	units      []models.Unit
	blocks     []models.BlockAssignment
	windows    []models.AvailabilityWindow
	encounters []*models.Encounter
	writes     int
}

type memEvents struct{ s *memState }

func (m memEvents) FindByID(_ context.Context, id string) (*models.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.event.ID != id {
		return nil, sql.ErrNoRows
	}
	event := m.s.event
	return &event, nil
}

type memCourts struct{ s *memState }

func (m memCourts) ListByEvent(_ context.Context, _ string) ([]models.Court, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.Court(nil), m.s.courts...), nil
}

func (m memCourts) FindByID(_ context.Context, id string) (*models.Court, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, court := range m.s.courts {
		if court.ID == id {
			c := court
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memGroups struct{ s *memState }

func (m memGroups) ListByEvent(_ context.Context, _ string) ([]models.CourtGroup, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.CourtGroup(nil), m.s.groups...), nil
}

func (m memGroups) CreateWithMembers(_ context.Context, _ sqlx.ExtContext, group *models.CourtGroup) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.groups = append(m.s.groups, *group)
	return nil
}

type memDivisions struct{ s *memState }

func (m memDivisions) FindByID(_ context.Context, id string) (*models.Division, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, division := range m.s.divisions {
		if division.ID == id {
			d := division
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memDivisions) ListByEvent(_ context.Context, _ string) ([]models.Division, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.Division(nil), m.s.divisions...), nil
}

func (m memDivisions) ListPhasesByEvent(_ context.Context, _ string) ([]models.Phase, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.Phase(nil), m.s.phases...), nil
}

func (m memDivisions) ListUnitsByEvent(_ context.Context, _ string) ([]models.Unit, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.Unit(nil), m.s.units...), nil
}

type memBlocks struct{ s *memState }

func (m memBlocks) ListByEvent(_ context.Context, _ string) ([]models.BlockAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.BlockAssignment(nil), m.s.blocks...), nil
}

func (m memBlocks) DeleteByEvent(_ context.Context, _ sqlx.ExtContext, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.blocks = nil
	return nil
}

func (m memBlocks) CreateBatch(_ context.Context, _ sqlx.ExtContext, blocks []models.BlockAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.blocks = append(m.s.blocks, blocks...)
	return nil
}

type memAvailability struct{ s *memState }

func (m memAvailability) ListByEvent(_ context.Context, _ string) ([]models.AvailabilityWindow, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]models.AvailabilityWindow(nil), m.s.windows...), nil
}

func (m memAvailability) ReplaceForEvent(_ context.Context, _ sqlx.ExtContext, _ string, windows []models.AvailabilityWindow) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.windows = append([]models.AvailabilityWindow(nil), windows...)
	return nil
}

type memEncounters struct{ s *memState }

func (m memEncounters) ListByEvent(_ context.Context, _ string) ([]models.Encounter, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]models.Encounter, 0, len(m.s.encounters))
	for _, enc := range m.s.encounters {
		out = append(out, *enc)
	}
	return out, nil
}

func (m memEncounters) FindByID(_ context.Context, id string) (*models.Encounter, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	enc := m.s.find(id)
	if enc == nil {
		return nil, sql.ErrNoRows
	}
	copied := *enc
	return &copied, nil
}

func (m memEncounters) AssignSlot(_ context.Context, assignment models.SlotAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	enc := m.s.find(assignment.EncounterID)
	if enc == nil || enc.Status.Frozen() {
		return sql.ErrNoRows
	}
	courtID := assignment.CourtID
	start, end := assignment.Start.UTC(), assignment.End.UTC()
	enc.CourtID, enc.EstimatedStart, enc.EstimatedEnd = &courtID, &start, &end
	enc.Status = models.EncounterStatusScheduled
	m.s.writes++
	return nil
}

func (m memEncounters) ClearByDivision(_ context.Context, divisionID string, phaseID *string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cleared := 0
	for _, enc := range m.s.encounters {
		if enc.DivisionID != divisionID || (phaseID != nil && (enc.PhaseID == nil || *enc.PhaseID != *phaseID)) {
			continue
		}
		if m.s.clear(enc) {
			cleared++
		}
	}
	return cleared, nil
}

func (m memEncounters) ClearSlot(_ context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	enc := m.s.find(id)
	if enc == nil {
		return false, nil
	}
	return m.s.clear(enc), nil
}

func (s *memState) find(id string) *models.Encounter {
	for _, enc := range s.encounters {
		if enc.ID == id {
			return enc
		}
	}
	return nil
}

func (s *memState) clear(enc *models.Encounter) bool {
	if enc.Status.Frozen() || enc.Status == models.EncounterStatusCancelled {
		return false
	}
	if enc.CourtID == nil && enc.EstimatedStart == nil && enc.EstimatedEnd == nil {
		return false
	}
	enc.CourtID, enc.EstimatedStart, enc.EstimatedEnd = nil, nil, nil
	enc.Status = models.EncounterStatusPending
	return true
}

func (s *memState) encounter(t *testing.T, id string) models.Encounter {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := s.find(id)
	require.NotNil(t, enc, "encounter %s", id)
	return *enc
}

func (s *memState) stores() ScheduleStores {
	return ScheduleStores{
		Events:       memEvents{s},
		Courts:       memCourts{s},
		Groups:       memGroups{s},
		Divisions:    memDivisions{s},
		Blocks:       memBlocks{s},
		Availability: memAvailability{s},
		Encounters:   memEncounters{s},
	}
}

// newMemEvent builds a UTC event open 09:00-18:00 every day with the given number of courts.
func newMemEvent(days, courts int) *memState {
	start := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	state := &memState{
		event: models.Event{
			ID:        "event-1",
			Name:      "Spring Open",
			Timezone:  "UTC",
			StartDate: start,
			EndDate:   start.AddDate(0, 0, days-1),
		},
	}
	for i := 1; i <= courts; i++ {
		state.courts = append(state.courts, models.Court{
			ID:        fmt.Sprintf("court-%d", i),
			EventID:   "event-1",
			Label:     fmt.Sprintf("Court %d", i),
			IsActive:  true,
			SortOrder: i,
		})
	}
	for day := 1; day <= days; day++ {
		state.windows = append(state.windows, models.AvailabilityWindow{
			ID:        fmt.Sprintf("window-%d", day),
			EventID:   "event-1",
			DayNumber: day,
			OpenFrom:  models.NewTimeOfDay(9, 0),
			OpenTo:    models.NewTimeOfDay(18, 0),
		})
	}
	return state
}

func (s *memState) addDivision(id string, matchMinutes, restMinutes int) {
	s.divisions = append(s.divisions, models.Division{
		ID:                    id,
		EventID:               s.event.ID,
		Name:                  "Division " + id,
		EstimatedMatchMinutes: matchMinutes,
		MinRestMinutes:        restMinutes,
	})
}

func (s *memState) addUnits(divisionID string, n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s-unit-%d", divisionID, i)
		s.units = append(s.units, models.Unit{ID: id, DivisionID: divisionID, Name: fmt.Sprintf("Unit %d", i)})
		ids = append(ids, id)
	}
	return ids
}

func (s *memState) addEncounter(enc models.Encounter) *models.Encounter {
	if enc.EventID == "" {
		enc.EventID = s.event.ID
	}
	if enc.Status == "" {
		enc.Status = models.EncounterStatusPending
	}
	stored := enc
	s.encounters = append(s.encounters, &stored)
	return &stored
}

func (s *memState) at(day int, hour, minute int) time.Time {
	return s.event.At(day, models.NewTimeOfDay(hour, minute))
}

func (s *memState) place(id, courtID string, start time.Time, minutes int) {
	enc := s.find(id)
	end := start.Add(time.Duration(minutes) * time.Minute)
	enc.CourtID, enc.EstimatedStart, enc.EstimatedEnd = &courtID, &start, &end
	enc.Status = models.EncounterStatusScheduled
}

func (s *memState) scheduled() []models.Encounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Encounter
	for _, enc := range s.encounters {
		if enc.IsScheduled() && enc.Status != models.EncounterStatusCancelled {
			out = append(out, *enc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EstimatedStart.Before(*out[j].EstimatedStart) })
	return out
}

func strPtr(value string) *string {
	return &value
}

func intPtr(value int) *int {
	return &value
}

type invalidationRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *invalidationRecorder) Invalidate(_ context.Context, eventID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventID)
}

func (r *invalidationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type schedulingHarness struct {
	state     *memState
	validator *ConflictValidator
	scheduler *EncounterScheduler
	mutator   *ScheduleMutator
	grid      *invalidationRecorder
}

func newSchedulingHarness(state *memState) *schedulingHarness {
	stores := state.stores()
	rules := SchedulingRules{SlotGranularity: 5 * time.Minute, DefaultMatchMinutes: 30}
	locker := NewLocalEventLocker(nil)
	grid := &invalidationRecorder{}
	validator := NewConflictValidator(stores, rules, nil, nil)
	encounters := memEncounters{state}
	return &schedulingHarness{
		state:     state,
		validator: validator,
		scheduler: NewEncounterScheduler(stores, encounters, rules, locker, validator, grid, nil, nil, nil),
		mutator:   NewScheduleMutator(stores, encounters, rules, locker, validator, grid, nil, nil),
		grid:      grid,
	}
}

// assertScheduleInvariants checks double booking, participant overlap, rest and predecessor order.
func assertScheduleInvariants(t *testing.T, state *memState) {
	t.Helper()
	placed := state.scheduled()
	byID := make(map[string]models.Encounter, len(placed))
	for _, enc := range placed {
		byID[enc.ID] = enc
	}
	rest := make(map[string]time.Duration)
	for _, division := range state.divisions {
		rest[division.ID] = time.Duration(division.MinRestMinutes) * time.Minute
	}
	for i := 0; i < len(placed); i++ {
		a := placed[i]
		for j := i + 1; j < len(placed); j++ {
			b := placed[j]
			overlap := a.EstimatedStart.Before(*b.EstimatedEnd) && b.EstimatedStart.Before(*a.EstimatedEnd)
			if *a.CourtID == *b.CourtID {
				require.False(t, overlap, "court %s double booked by %s and %s", *a.CourtID, a.ID, b.ID)
			}
			if sharesUnit(a, b) {
				gap := rest[a.DivisionID]
				if rest[b.DivisionID] > gap {
					gap = rest[b.DivisionID]
				}
				require.False(t, overlap, "%s and %s overlap for a shared unit", a.ID, b.ID)
				require.GreaterOrEqual(t, b.EstimatedStart.Sub(*a.EstimatedEnd), gap, "%s and %s leave too little rest", a.ID, b.ID)
			}
		}
		for _, predecessorID := range a.PredecessorIDs {
			if predecessor, ok := byID[predecessorID]; ok {
				require.False(t, a.EstimatedStart.Before(*predecessor.EstimatedEnd), "%s starts before predecessor %s ends", a.ID, predecessorID)
			}
		}
	}
}

func sharesUnit(a, b models.Encounter) bool {
	for _, x := range a.UnitIDs() {
		for _, y := range b.UnitIDs() {
			if x == y {
				return true
			}
		}
	}
	return false
}
