package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	appErrors "github.com/noah-isme/courtside-scheduler/pkg/errors"
	"github.com/noah-isme/courtside-scheduler/pkg/response"
)

type availabilityManager interface {
	List(ctx context.Context, eventID string) ([]models.AvailabilityWindow, error)
	Replace(ctx context.Context, eventID string, req dto.ReplaceAvailabilityRequest) ([]models.AvailabilityWindow, error)
	ResolveCourtDay(ctx context.Context, eventID, courtID string, day int) (*dto.ResolvedAvailability, error)
}

// AvailabilityHandler manages court open hours.
type AvailabilityHandler struct {
	availability availabilityManager
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(availability availabilityManager) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// List godoc
// @Summary List availability windows
// @Tags Availability
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	windows, err := h.availability.List(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Replace godoc
// @Summary Replace availability windows
// @Tags Availability
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body dto.ReplaceAvailabilityRequest true "Windows"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/availability [put]
func (h *AvailabilityHandler) Replace(c *gin.Context) {
	var req dto.ReplaceAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	windows, err := h.availability.Replace(c.Request.Context(), c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil, requestMeta(c))
}

// ResolveCourt godoc
// @Summary Effective open hours of one court on one day
// @Tags Availability
// @Produce json
// @Param eventId path string true "Event ID"
// @Param courtId path string true "Court ID"
// @Param day query int true "1-based event day"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/courts/{courtId}/availability [get]
func (h *AvailabilityHandler) ResolveCourt(c *gin.Context) {
	day, err := optionalDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if day == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day is required"))
		return
	}
	resolved, err := h.availability.ResolveCourtDay(c.Request.Context(), c.Param("eventId"), c.Param("courtId"), *day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}
