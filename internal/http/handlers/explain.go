package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type ExplainHandler struct {
	explanations services.ExplanationService
}

func NewExplainHandler(explanations services.ExplanationService) *ExplainHandler {
	return &ExplainHandler{explanations: explanations}
}

// lookup reads the transaction id path segment and the optional dataset_id
// query; 0 selects the most recent explanation for the transaction.
func lookup(c *gin.Context) (string, uint, bool) {
	q := newQueryParams(c)
	datasetID := q.uint("dataset_id")
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return "", 0, false
	}
	return c.Param("transaction_id"), datasetID, true
}

// GET /api/explain/:transaction_id
func (h *ExplainHandler) Show(c *gin.Context) {
	txID, datasetID, ok := lookup(c)
	if !ok {
		return
	}
	view, err := h.explanations.Show(c.Request.Context(), txID, datasetID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/explain/:transaction_id/narrative
func (h *ExplainHandler) Narrative(c *gin.Context) {
	txID, datasetID, ok := lookup(c)
	if !ok {
		return
	}
	view, err := h.explanations.Narrative(c.Request.Context(), txID, datasetID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/explain/:transaction_id/features
func (h *ExplainHandler) Features(c *gin.Context) {
	txID, datasetID, ok := lookup(c)
	if !ok {
		return
	}
	view, err := h.explanations.Features(c.Request.Context(), txID, datasetID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}
