package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs
func (h *JobHandler) List(c *gin.Context) {
	q := newQueryParams(c)
	f := services.JobListFilter{
		Status:    c.Query("status"),
		DatasetID: q.uint("dataset_id"),
		Page:      q.page(),
	}
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	list, err := h.jobs.List(c.Request.Context(), f)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, list)
}

// GET /api/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, err := pathID(c, "job_not_found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/retry
func (h *JobHandler) Retry(c *gin.Context) {
	id, err := pathID(c, "job_not_found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	job, err := h.jobs.Retry(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Job retry initiated", "job": job})
}
