package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
	"github.com/noah-isme/courtside-scheduler/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResult, error)
	AssignSingleEncounter(ctx context.Context, encounterID string, req dto.AssignSingleRequest) (*dto.ScheduleResult, error)
}

type scheduleMutator interface {
	MoveEncounter(ctx context.Context, encounterID string, req dto.MoveEncounterRequest) (*dto.MoveEncounterResult, error)
	ClearSchedule(ctx context.Context, divisionID string, phaseID *string) (*dto.ClearScheduleResult, error)
	UnscheduleEncounter(ctx context.Context, encounterID string) (bool, error)
}

type conflictReporter interface {
	Report(ctx context.Context, query dto.ValidateQuery) (*dto.ValidationReport, error)
}

// ScheduleHandler exposes generation, validation and organizer overrides.
type ScheduleHandler struct {
	scheduler scheduleGenerator
	mutator   scheduleMutator
	conflicts conflictReporter
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(scheduler scheduleGenerator, mutator scheduleMutator, conflicts conflictReporter) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler, mutator: mutator, conflicts: conflicts}
}

type generateScheduleBody struct {
	DivisionID *string `json:"divisionId"`
	PhaseID    *string `json:"phaseId"`
}

// Generate godoc
// @Summary Place every unscheduled encounter of an event
// @Description Earliest-fit placement honoring availability, blocks, rest and round dependencies. Encounters that cannot be placed are listed with a reason.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body generateScheduleBody false "Optional division/phase filter"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var body generateScheduleBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}
	result, err := h.scheduler.Generate(c.Request.Context(), dto.ScheduleRequest{
		EventID:    c.Param("eventId"),
		DivisionID: body.DivisionID,
		PhaseID:    body.PhaseID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, requestMeta(c))
}

// Conflicts godoc
// @Summary Validate the persisted schedule
// @Tags Scheduling
// @Produce json
// @Param eventId path string true "Event ID"
// @Param divisionId query string false "Only conflicts involving this division"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/conflicts [get]
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	report, err := h.conflicts.Report(c.Request.Context(), dto.ValidateQuery{
		EventID:    c.Param("eventId"),
		DivisionID: optionalQuery(c, "divisionId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Assign godoc
// @Summary Place one encounter against the current schedule
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Encounter ID"
// @Param payload body dto.AssignSingleRequest false "Earliest start"
// @Success 200 {object} response.Envelope
// @Router /encounters/{id}/assign [post]
func (h *ScheduleHandler) Assign(c *gin.Context) {
	var req dto.AssignSingleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assign payload"))
			return
		}
	}
	result, err := h.scheduler.AssignSingleEncounter(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, requestMeta(c))
}

// Move godoc
// @Summary Move an encounter to a court and start time
// @Description The move is always written; resulting conflicts are returned as warnings.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Encounter ID"
// @Param payload body dto.MoveEncounterRequest true "Target court and start"
// @Success 200 {object} response.Envelope
// @Router /encounters/{id}/move [put]
func (h *ScheduleHandler) Move(c *gin.Context) {
	var req dto.MoveEncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	result, err := h.mutator.MoveEncounter(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, requestMeta(c))
}

// Unschedule godoc
// @Summary Clear court and time of one encounter
// @Tags Scheduling
// @Produce json
// @Param id path string true "Encounter ID"
// @Success 200 {object} response.Envelope
// @Router /encounters/{id}/schedule [delete]
func (h *ScheduleHandler) Unschedule(c *gin.Context) {
	changed, err := h.mutator.UnscheduleEncounter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"encounterId": c.Param("id"), "cleared": changed}, nil)
}

// ClearDivision godoc
// @Summary Clear the schedule of a division
// @Tags Scheduling
// @Produce json
// @Param divisionId path string true "Division ID"
// @Param phaseId query string false "Limit to one phase"
// @Success 200 {object} response.Envelope
// @Router /divisions/{divisionId}/schedule/clear [post]
func (h *ScheduleHandler) ClearDivision(c *gin.Context) {
	result, err := h.mutator.ClearSchedule(c.Request.Context(), c.Param("divisionId"), optionalQuery(c, "phaseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, requestMeta(c))
}

func optionalQuery(c *gin.Context, key string) *string {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	return &value
}

func optionalDay(c *gin.Context) (*int, error) {
	raw := c.Query("day")
	if raw == "" {
		return nil, nil
	}
	day, err := strconv.Atoi(raw)
	if err != nil || day < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day must be a positive integer")
	}
	return &day, nil
}
