package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
)

type conflictObserver interface {
	ObserveConflicts(conflicts []models.Conflict)
}

// ConflictValidator recomputes rule violations from persisted schedule state. It never writes.
type ConflictValidator struct {
	stores  ScheduleStores
	rules   SchedulingRules
	metrics conflictObserver
	logger  *zap.Logger
}

// NewConflictValidator constructs a validator over the shared stores.
func NewConflictValidator(stores ScheduleStores, rules SchedulingRules, metrics conflictObserver, logger *zap.Logger) *ConflictValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictValidator{stores: stores, rules: rules.normalize(), metrics: metrics, logger: logger}
}

// Validate returns every conflict of the event, or only those involving divisionID when set.
func (v *ConflictValidator) Validate(ctx context.Context, eventID string, divisionID *string) ([]models.Conflict, error) {
	snap, err := loadSnapshot(ctx, v.stores, v.rules, eventID)
	if err != nil {
		return nil, err
	}
	if divisionID != nil {
		if _, ok := snap.divisions[*divisionID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "division not found")
		}
	}
	conflicts := detectConflicts(snap, divisionID)
	if v.metrics != nil {
		v.metrics.ObserveConflicts(conflicts)
	}
	return conflicts, nil
}

// Report wraps Validate with per-kind totals.
func (v *ConflictValidator) Report(ctx context.Context, query dto.ValidateQuery) (*dto.ValidationReport, error) {
	conflicts, err := v.Validate(ctx, query.EventID, query.DivisionID)
	if err != nil {
		return nil, err
	}
	byKind := make(map[models.ConflictKind]int)
	for _, conflict := range conflicts {
		byKind[conflict.Kind]++
	}
	return &dto.ValidationReport{
		EventID:    query.EventID,
		DivisionID: query.DivisionID,
		Total:      len(conflicts),
		ByKind:     byKind,
		Conflicts:  conflicts,
	}, nil
}

type placedInterval struct {
	encounter *models.Encounter
	start     time.Time
	end       time.Time
	rest      time.Duration
}

func scheduledIntervals(snap *eventSnapshot) []placedInterval {
	intervals := make([]placedInterval, 0, len(snap.encounters))
	for i := range snap.encounters {
		enc := &snap.encounters[i]
		if enc.Status == models.EncounterStatusCancelled || !enc.IsScheduled() {
			continue
		}
		intervals = append(intervals, placedInterval{
			encounter: enc,
			start:     *enc.EstimatedStart,
			end:       *enc.EstimatedEnd,
			rest:      time.Duration(snap.restMinutes(enc.DivisionID)) * time.Minute,
		})
	}
	sort.SliceStable(intervals, func(i, j int) bool {
		if !intervals[i].start.Equal(intervals[j].start) {
			return intervals[i].start.Before(intervals[j].start)
		}
		return intervals[i].encounter.ID < intervals[j].encounter.ID
	})
	return intervals
}

// detectConflicts runs every rule over the snapshot. Pairwise rules sweep start-sorted intervals
// per court and per participant instead of comparing all pairs.
func detectConflicts(snap *eventSnapshot, divisionID *string) []models.Conflict {
	intervals := scheduledIntervals(snap)
	conflicts := make([]models.Conflict, 0)

	byCourt := make(map[string][]placedInterval)
	byParticipant := make(map[string][]placedInterval)
	for _, iv := range intervals {
		byCourt[*iv.encounter.CourtID] = append(byCourt[*iv.encounter.CourtID], iv)
		for _, key := range snap.participants(*iv.encounter) {
			byParticipant[key] = append(byParticipant[key], iv)
		}
	}

	for courtID, list := range byCourt {
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list) && list[j].start.Before(list[i].end); j++ {
				if !list[i].start.Before(list[j].end) {
					continue
				}
				conflicts = append(conflicts, pairConflict(models.ConflictCourtDoubleBooking, list[i], list[j], courtID,
					fmt.Sprintf("court %s is booked by %s and %s at the same time", courtLabel(snap, courtID), list[i].encounter.ID, list[j].encounter.ID)))
			}
		}
	}

	seenPairs := make(map[string]bool)
	for _, list := range byParticipant {
		var maxRest time.Duration
		for _, iv := range list {
			if iv.rest > maxRest {
				maxRest = iv.rest
			}
		}
		for i := 0; i < len(list); i++ {
			horizon := list[i].end.Add(maxRest)
			for j := i + 1; j < len(list) && list[j].start.Before(horizon); j++ {
				first, second := list[i], list[j]
				pairKey := first.encounter.ID + "|" + second.encounter.ID
				if seenPairs[pairKey] {
					continue
				}
				rest := first.rest
				if second.rest > rest {
					rest = second.rest
				}
				courtID := *first.encounter.CourtID
				switch {
				case first.start.Before(second.end) && second.start.Before(first.end):
					seenPairs[pairKey] = true
					conflicts = append(conflicts, pairConflict(models.ConflictPlayerOverlap, first, second, courtID,
						fmt.Sprintf("encounters %s and %s share a participant and overlap", first.encounter.ID, second.encounter.ID)))
				case second.start.Sub(first.end) < rest:
					seenPairs[pairKey] = true
					conflicts = append(conflicts, pairConflict(models.ConflictInsufficientRest, first, second, courtID,
						fmt.Sprintf("encounters %s and %s leave %s rest, %s required", first.encounter.ID, second.encounter.ID, second.start.Sub(first.end), rest)))
				}
			}
		}
	}

	for _, iv := range intervals {
		for _, predecessorID := range iv.encounter.PredecessorIDs {
			predecessor, ok := snap.byID[predecessorID]
			if !ok || predecessor.Status == models.EncounterStatusCancelled || predecessor.EstimatedEnd == nil {
				continue
			}
			if iv.start.Before(*predecessor.EstimatedEnd) {
				id := predecessor.ID
				conflicts = append(conflicts, models.Conflict{
					Kind:         models.ConflictRoundDependency,
					EncounterID1: iv.encounter.ID,
					EncounterID2: &id,
					CourtID:      *iv.encounter.CourtID,
					Start:        iv.start,
					Message:      fmt.Sprintf("encounter %s starts before its predecessor %s is expected to finish", iv.encounter.ID, predecessor.ID),
				})
			}
		}
	}

	for _, iv := range intervals {
		courtID := *iv.encounter.CourtID
		if snap.calendar.Contains(courtID, iv.start, iv.end) {
			continue
		}
		day, _ := snap.event.DayOf(iv.start)
		violation := &models.AvailabilityViolation{
			EncounterID: iv.encounter.ID,
			CourtID:     courtID,
			Day:         day,
			ActualStart: iv.start,
			ActualEnd:   iv.end,
		}
		if opensAt, closesAt, ok := snap.calendar.Bounds(courtID, day); ok {
			violation.WindowStart = &opensAt
			violation.WindowEnd = &closesAt
		}
		conflicts = append(conflicts, models.Conflict{
			Kind:         models.ConflictAvailabilityViolation,
			EncounterID1: iv.encounter.ID,
			CourtID:      courtID,
			Start:        iv.start,
			Message:      fmt.Sprintf("encounter %s is outside the open hours of court %s on day %d", iv.encounter.ID, courtLabel(snap, courtID), day),
			Availability: violation,
		})
	}

	if divisionID != nil {
		conflicts = filterConflictsByDivision(snap, conflicts, *divisionID)
	}
	sortConflicts(conflicts)
	return conflicts
}

func pairConflict(kind models.ConflictKind, first, second placedInterval, courtID, message string) models.Conflict {
	id := second.encounter.ID
	return models.Conflict{
		Kind:         kind,
		EncounterID1: first.encounter.ID,
		EncounterID2: &id,
		CourtID:      courtID,
		Start:        first.start,
		Message:      message,
	}
}

func filterConflictsByDivision(snap *eventSnapshot, conflicts []models.Conflict, divisionID string) []models.Conflict {
	inDivision := func(id string) bool {
		enc, ok := snap.byID[id]
		return ok && enc.DivisionID == divisionID
	}
	filtered := conflicts[:0]
	for _, conflict := range conflicts {
		if inDivision(conflict.EncounterID1) || (conflict.EncounterID2 != nil && inDivision(*conflict.EncounterID2)) {
			filtered = append(filtered, conflict)
		}
	}
	return filtered
}

func sortConflicts(conflicts []models.Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.CourtID != b.CourtID {
			return a.CourtID < b.CourtID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.EncounterID1 != b.EncounterID1 {
			return a.EncounterID1 < b.EncounterID1
		}
		return derefString(a.EncounterID2) < derefString(b.EncounterID2)
	})
}

func courtLabel(snap *eventSnapshot, courtID string) string {
	if court, ok := snap.courtByID[courtID]; ok && court.Label != "" {
		return court.Label
	}
	return courtID
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
