package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type ResultHandler struct {
	dashboard services.DashboardService
}

func NewResultHandler(dashboard services.DashboardService) *ResultHandler {
	return &ResultHandler{dashboard: dashboard}
}

// GET /api/fraud-results
func (h *ResultHandler) List(c *gin.Context) {
	q := newQueryParams(c)
	rq := services.ResultQuery{
		DatasetID: q.uint("dataset_id"),
		IsFraud:   q.optBool("is_fraud"),
		MinScore:  q.optFloat("min_score"),
		Page:      q.page(),
	}
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rows, total, err := h.dashboard.ListResults(c.Request.Context(), rq)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": rows, "total": total, "page": rq.Page.Page})
}

// GET /api/fraud-results/:id
func (h *ResultHandler) Get(c *gin.Context) {
	id, err := pathID(c, "result_not_found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	row, err := h.dashboard.GetResult(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": row})
}

// GET /api/fraud-results/geo-summary
func (h *ResultHandler) GeoSummary(c *gin.Context) {
	q := newQueryParams(c)
	datasetID := q.uint("dataset_id")
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rows, err := h.dashboard.GeoSummary(c.Request.Context(), datasetID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"regions": rows})
}

// GET /api/fraud-results/vendor-summary
func (h *ResultHandler) VendorSummary(c *gin.Context) {
	q := newQueryParams(c)
	datasetID := q.uint("dataset_id")
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rows, err := h.dashboard.VendorSummary(c.Request.Context(), datasetID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"vendors": rows})
}

// GET /api/fraud-results/time-series
func (h *ResultHandler) TimeSeries(c *gin.Context) {
	q := newQueryParams(c)
	days := q.int("days", services.DefaultTimeSeriesDays)
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rows, err := h.dashboard.TimeSeries(c.Request.Context(), days)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"days": rows})
}

// GET /api/fraud-results/anomalies
func (h *ResultHandler) Anomalies(c *gin.Context) {
	rows, err := h.dashboard.Anomalies(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"anomalies": rows})
}

// GET /api/dashboard/stats
func (h *ResultHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/dashboard/recent
func (h *ResultHandler) Recent(c *gin.Context) {
	recent, err := h.dashboard.Recent(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, recent)
}
