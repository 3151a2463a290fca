package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

const (
	MaxDatasetBytes      = 50 << 20
	MaxLabelLength       = 100
	MaxDescriptionLength = 500
)

var allowedDatasetExts = map[string]bool{".csv": true, ".txt": true}

var (
	errUnauthenticated = apierr.New(http.StatusUnauthorized, "unauthenticated", errors.New("authentication required"))
	errForbidden       = apierr.Forbidden("forbidden", errors.New("you are not allowed to perform this action"))
)

type UploadInput struct {
	OriginalName string
	Size         int64
	ContentType  string
	Body         io.Reader
	Label        string
	Description  string
}

type DatasetDetail struct {
	Dataset *types.Dataset  `json:"dataset"`
	Jobs    []*types.JobLog `json:"jobs"`
}

type DatasetService interface {
	Upload(ctx context.Context, in UploadInput) (*types.Dataset, *types.JobLog, error)
	List(ctx context.Context, status string, page repos.Page) ([]*types.Dataset, int64, error)
	Get(ctx context.Context, id uint) (*DatasetDetail, error)
	Delete(ctx context.Context, id uint) error
	Reprocess(ctx context.Context, id uint) (*types.JobLog, error)
}

type datasetService struct {
	db         *gorm.DB
	log        *logger.Logger
	datasets   repos.DatasetRepo
	jobs       repos.JobLogRepo
	storage    DatasetStorage
	dispatcher Dispatcher
	audit      AuditService
	cache      SummaryCache
}

func NewDatasetService(
	db *gorm.DB,
	baseLog *logger.Logger,
	datasets repos.DatasetRepo,
	jobs repos.JobLogRepo,
	storage DatasetStorage,
	dispatcher Dispatcher,
	audit AuditService,
	cache SummaryCache,
) DatasetService {
	if cache == nil {
		cache = NewNoopSummaryCache()
	}
	return &datasetService{
		db:         db,
		log:        baseLog.With("service", "DatasetService"),
		datasets:   datasets,
		jobs:       jobs,
		storage:    storage,
		dispatcher: dispatcher,
		audit:      audit,
		cache:      cache,
	}
}

func validateUpload(in UploadInput) map[string]string {
	fields := map[string]string{}
	name := strings.TrimSpace(in.OriginalName)
	switch {
	case in.Body == nil || name == "":
		fields["dataset"] = "the dataset file is required"
	case !allowedDatasetExts[strings.ToLower(filepath.Ext(name))]:
		fields["dataset"] = "the dataset must be a file of type: csv, txt"
	case in.Size <= 0:
		fields["dataset"] = "the dataset file is empty"
	case in.Size > MaxDatasetBytes:
		fields["dataset"] = "the dataset may not be greater than 51200 kilobytes"
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		fields["label"] = "the label field is required"
	} else if utf8.RuneCountInString(label) > MaxLabelLength {
		fields["label"] = fmt.Sprintf("the label may not be greater than %d characters", MaxLabelLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("the description may not be greater than %d characters", MaxDescriptionLength)
	}
	return fields
}

func (s *datasetService) Upload(ctx context.Context, in UploadInput) (*types.Dataset, *types.JobLog, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, nil, errUnauthenticated
	}
	if fields := validateUpload(in); len(fields) > 0 {
		return nil, nil, apierr.Validation(fields)
	}

	originalName := filepath.Base(strings.TrimSpace(in.OriginalName))
	stored, err := s.storage.Store(ctx, originalName, io.LimitReader(in.Body, MaxDatasetBytes+1), in.ContentType)
	if err != nil {
		return nil, nil, fmt.Errorf("store dataset: %w", err)
	}
	if stored.Size > MaxDatasetBytes {
		_ = s.storage.Delete(ctx, stored.Key)
		return nil, nil, apierr.Validation(map[string]string{"dataset": "the dataset may not be greater than 51200 kilobytes"})
	}

	uploader := rd.UserID
	ds := &types.Dataset{
		Filename:     stored.Key,
		OriginalName: originalName,
		FilePath:     stored.Location,
		FileSize:     stored.Size,
		Label:        strings.TrimSpace(in.Label),
		Description:  strings.TrimSpace(in.Description),
		Status:       types.DatasetPending,
		UploadedBy:   uploader,
	}
	var job *types.JobLog
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.datasets.Create(inner, ds); err != nil {
			return fmt.Errorf("create dataset: %w", err)
		}
		var dErr error
		job, dErr = s.dispatcher.Dispatch(inner, ds, &uploader, 0)
		return dErr
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, stored.Key); delErr != nil {
			s.log.Warn("failed to remove orphaned upload", "key", stored.Key, "error", delErr)
		}
		return nil, nil, err
	}
	s.dispatcher.Wake()

	s.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditDatasetUpload,
		fmt.Sprintf("Dataset '%s' uploaded (%s)", ds.Label, ds.OriginalName),
		&uploader,
		map[string]any{"dataset_id": ds.ID},
	)
	s.cache.Invalidate(ctx)
	return ds, job, nil
}

func (s *datasetService) List(ctx context.Context, status string, page repos.Page) ([]*types.Dataset, int64, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, 0, errUnauthenticated
	}
	f := repos.DatasetFilter{Page: page}
	if status != "" {
		st := types.DatasetStatus(status)
		if !st.Valid() {
			return nil, 0, apierr.Validation(map[string]string{"status": "unknown dataset status"})
		}
		f.Status = st
	}
	if !rd.IsPrivileged() {
		owner := rd.UserID
		f.UploadedBy = &owner
	}
	return s.datasets.List(dbctx.Context{Ctx: ctx}, f)
}

func (s *datasetService) load(ctx context.Context, id uint) (*types.Dataset, *ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, nil, errUnauthenticated
	}
	ds, err := s.datasets.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, nil, err
	}
	if ds == nil {
		return nil, nil, apierr.NotFound("dataset_not_found", fmt.Errorf("dataset #%d not found", id))
	}
	return ds, rd, nil
}

func (s *datasetService) Get(ctx context.Context, id uint) (*DatasetDetail, error) {
	ds, rd, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rd.IsPrivileged() && ds.UploadedBy != rd.UserID {
		return nil, errForbidden
	}
	jobs, err := s.jobs.ListByDataset(dbctx.Context{Ctx: ctx}, ds.ID)
	if err != nil {
		return nil, err
	}
	return &DatasetDetail{Dataset: ds, Jobs: jobs}, nil
}

func (s *datasetService) Delete(ctx context.Context, id uint) error {
	ds, rd, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !rd.IsAdmin() && ds.UploadedBy != rd.UserID {
		return errForbidden
	}
	if err := s.storage.Delete(ctx, ds.Filename); err != nil {
		s.log.Warn("failed to delete dataset file", "dataset_id", ds.ID, "error", err)
	}
	actor := rd.UserID
	s.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditDatasetDelete,
		fmt.Sprintf("Dataset '%s' deleted", ds.Label),
		&actor,
		map[string]any{"dataset_id": ds.ID},
	)
	if err := s.datasets.SoftDelete(dbctx.Context{Ctx: ctx}, ds.ID); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Reprocess re-dispatches a failed dataset under a fresh job reference.
func (s *datasetService) Reprocess(ctx context.Context, id uint) (*types.JobLog, error) {
	ds, rd, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rd.IsPrivileged() && ds.UploadedBy != rd.UserID {
		return nil, errForbidden
	}
	if ds.Status != types.DatasetFailed {
		return nil, apierr.Conflict("dataset_not_failed", errors.New("only failed datasets can be reprocessed"))
	}
	prior, err := s.jobs.ListByDataset(dbctx.Context{Ctx: ctx}, ds.ID)
	if err != nil {
		return nil, err
	}
	retryCount := 0
	if len(prior) > 0 {
		retryCount = prior[0].RetryCount + 1
	}
	return redispatch(ctx, s.db, s.jobs, s.dispatcher, s.audit, ds, rd.UserID, retryCount,
		types.AuditDatasetReprocess,
		fmt.Sprintf("Dataset '%s' re-queued for processing", ds.Label),
	)
}

// redispatch creates a new job entry for a failed dataset, refusing when any
// job for it is still in flight.
func redispatch(
	ctx context.Context,
	db *gorm.DB,
	jobs repos.JobLogRepo,
	dispatcher Dispatcher,
	audit AuditService,
	ds *types.Dataset,
	actor uint,
	retryCount int,
	action string,
	description string,
) (*types.JobLog, error) {
	var job *types.JobLog
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		active, err := jobs.HasActiveForDataset(inner, ds.ID)
		if err != nil {
			return err
		}
		if active {
			return apierr.Conflict("job_in_flight", fmt.Errorf("dataset #%d already has an active job", ds.ID))
		}
		var dErr error
		job, dErr = dispatcher.Dispatch(inner, ds, &actor, retryCount)
		return dErr
	})
	if err != nil {
		return nil, err
	}
	dispatcher.Wake()
	audit.Record(dbctx.Context{Ctx: ctx}, action, description, &actor, map[string]any{
		"dataset_id":    ds.ID,
		"job_reference": job.JobReference,
		"retry_count":   retryCount,
	})
	return job, nil
}
