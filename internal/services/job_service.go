package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type JobListFilter struct {
	Status    string
	DatasetID uint
	Page      repos.Page
}

type JobList struct {
	Jobs         []*types.JobLog           `json:"jobs"`
	Total        int64                     `json:"total"`
	StatusCounts map[types.JobStatus]int64 `json:"status_counts"`
}

type JobService interface {
	List(ctx context.Context, f JobListFilter) (*JobList, error)
	Get(ctx context.Context, id uint) (*types.JobLog, error)
	// Retry re-dispatches the dataset of a failed job entry. The failed entry
	// is left as history; the new entry carries retry_count+1.
	Retry(ctx context.Context, id uint) (*types.JobLog, error)
}

type jobService struct {
	db         *gorm.DB
	log        *logger.Logger
	jobs       repos.JobLogRepo
	datasets   repos.DatasetRepo
	dispatcher Dispatcher
	audit      AuditService
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.JobLogRepo,
	datasets repos.DatasetRepo,
	dispatcher Dispatcher,
	audit AuditService,
) JobService {
	return &jobService{
		db:         db,
		log:        baseLog.With("service", "JobService"),
		jobs:       jobs,
		datasets:   datasets,
		dispatcher: dispatcher,
		audit:      audit,
	}
}

func requirePrivileged(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, errUnauthenticated
	}
	if !rd.IsPrivileged() {
		return nil, errForbidden
	}
	return rd, nil
}

func (s *jobService) List(ctx context.Context, f JobListFilter) (*JobList, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	filter := repos.JobLogFilter{DatasetID: f.DatasetID, Page: f.Page}
	if f.Status != "" {
		st := types.JobStatus(f.Status)
		if !st.Valid() {
			return nil, apierr.Validation(map[string]string{"status": "unknown job status"})
		}
		filter.Status = st
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, total, err := s.jobs.List(dbc, filter)
	if err != nil {
		return nil, err
	}
	counts, err := s.jobs.CountByStatus(dbc)
	if err != nil {
		return nil, err
	}
	return &JobList{Jobs: rows, Total: total, StatusCounts: counts}, nil
}

func (s *jobService) Get(ctx context.Context, id uint) (*types.JobLog, error) {
	if _, err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apierr.NotFound("job_not_found", fmt.Errorf("job #%d not found", id))
	}
	return job, nil
}

func (s *jobService) Retry(ctx context.Context, id uint) (*types.JobLog, error) {
	rd, err := requirePrivileged(ctx)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apierr.NotFound("job_not_found", fmt.Errorf("job #%d not found", id))
	}
	if job.Status != types.JobFailed {
		return nil, apierr.Conflict("job_not_retryable", errors.New("only failed jobs can be retried"))
	}
	ds := job.Dataset
	if ds == nil {
		return nil, apierr.NotFound("dataset_not_found", fmt.Errorf("dataset #%d not found", job.DatasetID))
	}
	if ds.Status == types.DatasetProcessed {
		return nil, apierr.Conflict("dataset_already_processed", fmt.Errorf("dataset #%d is already processed", ds.ID))
	}
	next, err := redispatch(ctx, s.db, s.jobs, s.dispatcher, s.audit, ds, rd.UserID, job.RetryCount+1,
		types.AuditJobRetry,
		fmt.Sprintf("Job #%d re-queued for processing", job.ID),
	)
	if err != nil {
		return nil, err
	}
	s.log.Info("job retried", "job_id", job.JobReference, "new_job_id", next.JobReference, "retry_count", next.RetryCount)
	return next, nil
}
