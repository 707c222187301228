package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/pkg/response"
)

type gridProvider interface {
	BuildGrid(ctx context.Context, eventID string, day *int) (*dto.ScheduleGrid, error)
	Export(ctx context.Context, eventID string, day *int, format dto.GridExportFormat) (*dto.GridExport, error)
}

// GridHandler serves the read-only schedule grid.
type GridHandler struct {
	grid gridProvider
}

// NewGridHandler constructs the handler.
func NewGridHandler(grid gridProvider) *GridHandler {
	return &GridHandler{grid: grid}
}

// Grid godoc
// @Summary Schedule grid for an event or one day
// @Tags Grid
// @Produce json
// @Param eventId path string true "Event ID"
// @Param day query int false "1-based event day"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/grid [get]
func (h *GridHandler) Grid(c *gin.Context) {
	day, err := optionalDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, err := h.grid.BuildGrid(c.Request.Context(), c.Param("eventId"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Export godoc
// @Summary Download the schedule grid
// @Tags Grid
// @Produce octet-stream
// @Param eventId path string true "Event ID"
// @Param format query string false "csv, pdf or xlsx" Enums(csv, pdf, xlsx)
// @Param day query int false "1-based event day"
// @Success 200 {file} binary
// @Router /events/{eventId}/grid/export [get]
func (h *GridHandler) Export(c *gin.Context) {
	day, err := optionalDay(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := dto.GridExportFormat(c.DefaultQuery("format", string(dto.GridExportCSV)))
	file, err := h.grid.Export(c.Request.Context(), c.Param("eventId"), day, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}
