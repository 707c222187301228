package dto

import "github.com/noah-isme/courtside-scheduler/internal/models"

// BlockAssignmentInput is an organizer-authored block. ID keeps the id of a block returned by a
// previous listing; Key lets new blocks in the same payload reference each other through DependsOnKey.
type BlockAssignmentInput struct {
	ID               *string           `json:"id,omitempty"`
	Key              string            `json:"key"`
	DivisionID       string            `json:"divisionId" validate:"required"`
	PhaseID          *string           `json:"phaseId,omitempty"`
	CourtGroupID     string            `json:"courtGroupId" validate:"required"`
	DayNumber        *int              `json:"dayNumber,omitempty" validate:"omitempty,min=1"`
	ValidFrom        *models.TimeOfDay `json:"validFrom,omitempty"`
	ValidTo          *models.TimeOfDay `json:"validTo,omitempty"`
	Priority         int               `json:"priority" validate:"min=0"`
	DependsOnKey     *string           `json:"dependsOnKey,omitempty"`
	DependsOnBlockID *string           `json:"dependsOnBlockId,omitempty"`
}

// ReplaceBlocksRequest swaps the full block set of an event.
type ReplaceBlocksRequest struct {
	Blocks []BlockAssignmentInput `json:"blocks" validate:"dive"`
}

// AutoAllocateBlock requests one block bound to an auto-created court group.
type AutoAllocateBlock struct {
	DivisionID   string            `json:"divisionId" validate:"required"`
	PhaseID      *string           `json:"phaseId,omitempty"`
	DayNumber    *int              `json:"dayNumber,omitempty" validate:"omitempty,min=1"`
	ValidFrom    *models.TimeOfDay `json:"validFrom,omitempty"`
	ValidTo      *models.TimeOfDay `json:"validTo,omitempty"`
	Priority     int               `json:"priority" validate:"min=0"`
	DependsOnIdx *int              `json:"dependsOnIndex,omitempty" validate:"omitempty,min=0"`
}

// AutoAllocateRequest partitions unassigned courts into groups and binds blocks to them.
type AutoAllocateRequest struct {
	EventID string              `json:"eventId" validate:"required"`
	Blocks  []AutoAllocateBlock `json:"blocks" validate:"required,min=1,dive"`
}

// AutoAllocateResult reports created groups and blocks.
type AutoAllocateResult struct {
	Success       bool                     `json:"success"`
	Message       string                   `json:"message"`
	AssignedCount int                      `json:"assignedCount"`
	Groups        []models.CourtGroup      `json:"groups"`
	Blocks        []models.BlockAssignment `json:"blocks"`
}

// AvailabilityWindowInput is one open-hours entry; CourtID nil means event default.
type AvailabilityWindowInput struct {
	CourtID   *string          `json:"courtId,omitempty"`
	DayNumber int              `json:"dayNumber" validate:"required,min=1"`
	OpenFrom  models.TimeOfDay `json:"openFrom"`
	OpenTo    models.TimeOfDay `json:"openTo"`
}

// ReplaceAvailabilityRequest swaps the availability windows of an event.
type ReplaceAvailabilityRequest struct {
	Windows []AvailabilityWindowInput `json:"windows" validate:"dive"`
}

// ResolvedAvailability is the effective window of a court on one day.
type ResolvedAvailability struct {
	CourtID string            `json:"courtId"`
	Day     int               `json:"day"`
	Source  string            `json:"source"`
	Window  models.TimeWindow `json:"window"`
}
