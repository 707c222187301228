package models

import "time"

// ConflictKind enumerates schedule rule violations.
type ConflictKind string

const (
	ConflictPlayerOverlap         ConflictKind = "PLAYER_OVERLAP"
	ConflictCourtDoubleBooking    ConflictKind = "COURT_DOUBLE_BOOKING"
	ConflictInsufficientRest      ConflictKind = "INSUFFICIENT_REST"
	ConflictRoundDependency       ConflictKind = "ROUND_DEPENDENCY"
	ConflictAvailabilityViolation ConflictKind = "AVAILABILITY_VIOLATION"
)

// Conflict is a derived violation between one or two encounters. It is never persisted.
type Conflict struct {
	Kind         ConflictKind           `json:"kind"`
	EncounterID1 string                 `json:"encounter_id_1"`
	EncounterID2 *string                `json:"encounter_id_2,omitempty"`
	CourtID      string                 `json:"court_id,omitempty"`
	Start        time.Time              `json:"start"`
	Message      string                 `json:"message"`
	Availability *AvailabilityViolation `json:"availability,omitempty"`
}

// Involves reports whether the conflict references the encounter.
func (c Conflict) Involves(encounterID string) bool {
	if c.EncounterID1 == encounterID {
		return true
	}
	return c.EncounterID2 != nil && *c.EncounterID2 == encounterID
}

// AvailabilityViolation details an encounter played outside its court's open hours.
type AvailabilityViolation struct {
	EncounterID string     `json:"encounter_id"`
	CourtID     string     `json:"court_id"`
	Day         int        `json:"day"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	ActualStart time.Time  `json:"actual_start"`
	ActualEnd   time.Time  `json:"actual_end"`
}
