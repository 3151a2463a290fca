package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type DatasetHandler struct {
	log      *logger.Logger
	datasets services.DatasetService
}

func NewDatasetHandler(log *logger.Logger, datasets services.DatasetService) *DatasetHandler {
	return &DatasetHandler{log: log.With("handler", "DatasetHandler"), datasets: datasets}
}

// POST /api/datasets
func (h *DatasetHandler) Upload(c *gin.Context) {
	in := services.UploadInput{
		Label:       c.PostForm("label"),
		Description: c.PostForm("description"),
	}
	fh, err := c.FormFile("dataset")
	switch {
	case err == nil:
		var f multipart.File
		f, err = fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
			return
		}
		defer f.Close()
		in.OriginalName = fh.Filename
		in.Size = fh.Size
		in.ContentType = fh.Header.Get("Content-Type")
		in.Body = f
	case errors.Is(err, http.ErrMissingFile):
		// validation reports the missing file alongside any other field errors
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}

	ds, job, err := h.datasets.Upload(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"message": "Dataset uploaded and queued for processing",
		"dataset": ds,
		"job":     job,
	})
}

// GET /api/datasets
func (h *DatasetHandler) List(c *gin.Context) {
	q := newQueryParams(c)
	page := q.page()
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	list, total, err := h.datasets.List(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"datasets": list, "total": total, "page": page.Page})
}

// GET /api/datasets/:id
func (h *DatasetHandler) Get(c *gin.Context) {
	id, err := pathID(c, "dataset_not_found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	detail, err := h.datasets.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// DELETE /api/datasets/:id
func (h *DatasetHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "dataset_not_found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if err := h.datasets.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Dataset deleted"})
}

// POST /api/datasets/:id/process
func (h *DatasetHandler) Reprocess(c *gin.Context) {
	id, err := pathID(c, "dataset_not_found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	job, err := h.datasets.Reprocess(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Dataset queued for processing", "job": job})
}
