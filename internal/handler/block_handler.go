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

type blockManager interface {
	ListBlocks(ctx context.Context, eventID string) ([]models.BlockAssignment, error)
	ReplaceBlocks(ctx context.Context, eventID string, req dto.ReplaceBlocksRequest) ([]models.BlockAssignment, error)
	AutoAllocate(ctx context.Context, req dto.AutoAllocateRequest) (*dto.AutoAllocateResult, error)
}

// BlockHandler manages court-group block assignments.
type BlockHandler struct {
	blocks blockManager
}

// NewBlockHandler constructs the handler.
func NewBlockHandler(blocks blockManager) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// List godoc
// @Summary List block assignments in resolution order
// @Tags Blocks
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/blocks [get]
func (h *BlockHandler) List(c *gin.Context) {
	blocks, err := h.blocks.ListBlocks(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// Replace godoc
// @Summary Replace every block assignment of an event
// @Tags Blocks
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body dto.ReplaceBlocksRequest true "Blocks"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/blocks [put]
func (h *BlockHandler) Replace(c *gin.Context) {
	var req dto.ReplaceBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocks payload"))
		return
	}
	blocks, err := h.blocks.ReplaceBlocks(c.Request.Context(), c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil, requestMeta(c))
}

// AutoAllocate godoc
// @Summary Split unassigned courts into groups and bind one block to each
// @Tags Blocks
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body dto.AutoAllocateRequest true "Requested blocks"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/blocks/auto-allocate [post]
func (h *BlockHandler) AutoAllocate(c *gin.Context) {
	var req dto.AutoAllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid auto-allocate payload"))
		return
	}
	req.EventID = c.Param("eventId")
	result, err := h.blocks.AutoAllocate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, requestMeta(c))
}
