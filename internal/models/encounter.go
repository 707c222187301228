package models

import (
	"time"

	"github.com/lib/pq"
)

// EncounterStatus tracks the lifecycle of a match.
type EncounterStatus string

const (
	EncounterStatusPending    EncounterStatus = "PENDING"
	EncounterStatusScheduled  EncounterStatus = "SCHEDULED"
	EncounterStatusInProgress EncounterStatus = "IN_PROGRESS"
	EncounterStatusCompleted  EncounterStatus = "COMPLETED"
	EncounterStatusCancelled  EncounterStatus = "CANCELLED"
)

// Frozen reports whether court and time may no longer change.
func (s EncounterStatus) Frozen() bool {
	return s == EncounterStatusInProgress || s == EncounterStatusCompleted
}

// Encounter is a head-to-head match between two units.
type Encounter struct {
	ID              string          `db:"id" json:"id"`
	EventID         string          `db:"event_id" json:"event_id"`
	DivisionID      string          `db:"division_id" json:"division_id"`
	PhaseID         *string         `db:"phase_id" json:"phase_id,omitempty"`
	Unit1ID         *string         `db:"unit1_id" json:"unit1_id,omitempty"`
	Unit2ID         *string         `db:"unit2_id" json:"unit2_id,omitempty"`
	CourtID         *string         `db:"court_id" json:"court_id,omitempty"`
	EstimatedStart  *time.Time      `db:"estimated_start" json:"estimated_start,omitempty"`
	EstimatedEnd    *time.Time      `db:"estimated_end" json:"estimated_end,omitempty"`
	DurationMinutes *int            `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Status          EncounterStatus `db:"status" json:"status"`
	RoundNumber     int             `db:"round_number" json:"round_number"`
	RoundType       string          `db:"round_type" json:"round_type"`
	RoundName       string          `db:"round_name" json:"round_name"`
	EncounterNumber int             `db:"encounter_number" json:"encounter_number"`
	PredecessorIDs  pq.StringArray  `db:"predecessor_ids" json:"predecessor_ids"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// IsScheduled reports whether court, start and end are all assigned.
func (e Encounter) IsScheduled() bool {
	return e.CourtID != nil && e.EstimatedStart != nil && e.EstimatedEnd != nil
}

// UnitIDs lists the assigned units, skipping open (TBD) sides.
func (e Encounter) UnitIDs() []string {
	ids := make([]string, 0, 2)
	if e.Unit1ID != nil && *e.Unit1ID != "" {
		ids = append(ids, *e.Unit1ID)
	}
	if e.Unit2ID != nil && *e.Unit2ID != "" {
		ids = append(ids, *e.Unit2ID)
	}
	return ids
}

// EncounterFilter narrows encounter listings.
type EncounterFilter struct {
	EventID    string
	DivisionID string
	PhaseID    string
}

// SlotAssignment is the court/time write applied to one encounter.
type SlotAssignment struct {
	EncounterID string
	CourtID     string
	Start       time.Time
	End         time.Time
}
