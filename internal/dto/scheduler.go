package dto

import (
	"time"

	"github.com/noah-isme/courtside-scheduler/internal/models"
)

// ScheduleRequest asks the generator to place unscheduled encounters of an event.
type ScheduleRequest struct {
	EventID    string  `json:"eventId" validate:"required"`
	DivisionID *string `json:"divisionId,omitempty" validate:"omitempty,min=1"`
	PhaseID    *string `json:"phaseId,omitempty" validate:"omitempty,min=1"`
}

// UnscheduledEncounter explains why an encounter could not be placed.
type UnscheduledEncounter struct {
	EncounterID string `json:"encounterId"`
	Reason      string `json:"reason"`
}

// PlacedEncounter is a court/time written by the scheduler.
type PlacedEncounter struct {
	EncounterID string    `json:"encounterId"`
	CourtID     string    `json:"courtId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// ScheduleResult summarises a batch or single-encounter run.
type ScheduleResult struct {
	Success        bool                   `json:"success"`
	Message        string                 `json:"message"`
	ScheduledCount int                    `json:"scheduledCount"`
	Placed         []PlacedEncounter      `json:"placed"`
	Unscheduled    []UnscheduledEncounter `json:"unscheduled"`
	Conflicts      []models.Conflict      `json:"conflicts"`
}

// AssignSingleRequest tunes a live, single-encounter placement.
type AssignSingleRequest struct {
	NotBefore *time.Time `json:"notBefore,omitempty"`
}

// MoveEncounterRequest is an organizer override of one encounter's court and start.
type MoveEncounterRequest struct {
	CourtID   string    `json:"courtId" validate:"required"`
	StartTime time.Time `json:"startTime" validate:"required"`
}

// MoveEncounterResult returns the written assignment and advisory conflicts.
type MoveEncounterResult struct {
	EncounterID  string            `json:"encounterId"`
	CourtID      string            `json:"courtId"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      time.Time         `json:"endTime"`
	HasConflicts bool              `json:"hasConflicts"`
	Conflicts    []models.Conflict `json:"conflicts"`
}

// ClearScheduleResult reports how many encounters lost their court/time.
type ClearScheduleResult struct {
	DivisionID string  `json:"divisionId"`
	PhaseID    *string `json:"phaseId,omitempty"`
	Cleared    int     `json:"cleared"`
}

// ValidateQuery scopes a validation pass.
type ValidateQuery struct {
	EventID    string  `json:"eventId"`
	DivisionID *string `json:"divisionId,omitempty"`
}

// ValidationReport wraps validator output for the API.
type ValidationReport struct {
	EventID    string                      `json:"eventId"`
	DivisionID *string                     `json:"divisionId,omitempty"`
	Total      int                         `json:"total"`
	ByKind     map[models.ConflictKind]int `json:"byKind"`
	Conflicts  []models.Conflict           `json:"conflicts"`
}
