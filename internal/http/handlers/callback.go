package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

// CallbackHandler serves the routes the ML worker posts back to. The shared
// secret is checked by middleware before any body is read.
type CallbackHandler struct {
	log       *logger.Logger
	callbacks services.CallbackService
}

func NewCallbackHandler(log *logger.Logger, callbacks services.CallbackService) *CallbackHandler {
	return &CallbackHandler{log: log.With("handler", "CallbackHandler"), callbacks: callbacks}
}

func malformed(err error) error {
	return apierr.Validation(map[string]string{"body": "malformed JSON payload: " + err.Error()})
}

// POST /api/internal/ml-results
func (h *CallbackHandler) Results(c *gin.Context) {
	var p services.ResultsPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		response.RespondAPIError(c, malformed(err))
		return
	}
	ack, err := h.callbacks.ReceiveResults(c.Request.Context(), &p)
	if err != nil {
		if ae, ok := apierr.As(err); !ok || ae.Status >= http.StatusInternalServerError {
			h.log.Error("Results callback failed", "dataset_id", p.DatasetID, "job_id", p.JobID, "error", err)
		}
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, ack)
}

// POST /api/internal/ml-explain
func (h *CallbackHandler) Explanations(c *gin.Context) {
	var p services.ExplanationsPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		response.RespondAPIError(c, malformed(err))
		return
	}
	ack, err := h.callbacks.ReceiveExplanations(c.Request.Context(), &p)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, ack)
}

// POST /api/internal/ml-heartbeat
func (h *CallbackHandler) Heartbeat(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}
