package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/platform/mlclient"
)

var (
	ErrJobNotFound = errors.New("job log not found")
	ErrDatasetGone = errors.New("dataset no longer exists")
)

// ProcessTarget is everything needed to notify the ML worker about one job.
// It is plain data so durable workflow engines can carry it between activities.
type ProcessTarget struct {
	DatasetID    uint   `json:"dataset_id"`
	JobReference string `json:"job_id"`
	DatasetPath  string `json:"dataset_path"`
	TriggeredBy  *uint  `json:"triggered_by,omitempty"`
}

// DispatchExecutor performs the side effects of outbox delivery. Both the DB
// relay and the temporal activities drive it.
type DispatchExecutor interface {
	// BeginProcess marks the job processing. A nil target means the job is
	// already terminal and delivery must be skipped.
	BeginProcess(ctx context.Context, jobRef string) (*ProcessTarget, error)
	DeliverProcess(ctx context.Context, target ProcessTarget) error
	FailProcess(ctx context.Context, datasetID uint, jobRef string, cause string) error
	DeliverExplain(ctx context.Context, datasetID uint, jobRef string) error
	FailExplain(ctx context.Context, datasetID uint, jobRef string, cause string)
}

type dispatchExecutor struct {
	db       *gorm.DB
	log      *logger.Logger
	ml       mlclient.Client
	urls     CallbackURLs
	datasets repos.DatasetRepo
	jobs     repos.JobLogRepo
	audit    AuditService
	cache    SummaryCache
}

func NewDispatchExecutor(
	db *gorm.DB,
	baseLog *logger.Logger,
	ml mlclient.Client,
	urls CallbackURLs,
	datasets repos.DatasetRepo,
	jobs repos.JobLogRepo,
	audit AuditService,
	cache SummaryCache,
) DispatchExecutor {
	if cache == nil {
		cache = NewNoopSummaryCache()
	}
	return &dispatchExecutor{
		db:       db,
		log:      baseLog.With("service", "DispatchExecutor"),
		ml:       ml,
		urls:     urls,
		datasets: datasets,
		jobs:     jobs,
		audit:    audit,
		cache:    cache,
	}
}

func (e *dispatchExecutor) BeginProcess(ctx context.Context, jobRef string) (*ProcessTarget, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := e.jobs.GetByReference(dbc, jobRef)
	if err != nil {
		return nil, fmt.Errorf("load job log: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Status.Terminal() {
		e.log.Info("job already terminal; skipping delivery", "job_id", jobRef, "status", job.Status)
		return nil, nil
	}
	ds, err := e.datasets.GetByID(dbc, job.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if ds == nil {
		return nil, ErrDatasetGone
	}
	// A reclaimed task may find the job already processing from the prior attempt.
	if job.Status != types.JobProcessing {
		now := time.Now()
		if _, err := e.jobs.Transition(dbc, jobRef, types.JobProcessing, map[string]interface{}{
			"started_at": now,
		}); err != nil {
			return nil, fmt.Errorf("job transition: %w", err)
		}
	}
	return &ProcessTarget{
		DatasetID:    ds.ID,
		JobReference: jobRef,
		DatasetPath:  ds.FilePath,
		TriggeredBy:  job.TriggeredBy,
	}, nil
}

func (e *dispatchExecutor) DeliverProcess(ctx context.Context, target ProcessTarget) error {
	err := e.ml.ProcessDataset(ctx, mlclient.ProcessDatasetRequest{
		DatasetID:   target.DatasetID,
		DatasetPath: target.DatasetPath,
		JobID:       target.JobReference,
		CallbackURL: e.urls.Results,
	})
	if err != nil {
		return err
	}
	e.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditMLJobDispatched,
		fmt.Sprintf("ML processing job dispatched for dataset #%d", target.DatasetID),
		target.TriggeredBy,
		map[string]any{"dataset_id": target.DatasetID, "job_reference": target.JobReference},
	)
	return nil
}

func (e *dispatchExecutor) FailProcess(ctx context.Context, datasetID uint, jobRef string, cause string) error {
	cause = truncate(cause, MaxStoredError)
	var (
		applied     bool
		triggeredBy *uint
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		job, err := e.jobs.GetByReference(inner, jobRef)
		if err != nil {
			return err
		}
		if job != nil {
			triggeredBy = job.TriggeredBy
		}
		now := time.Now()
		ok, err := e.jobs.Transition(inner, jobRef, types.JobFailed, map[string]interface{}{
			"error_message": cause,
			"completed_at":  now,
		})
		if err != nil {
			return fmt.Errorf("job transition: %w", err)
		}
		if !ok {
			// The worker reported back before the relay gave up.
			return nil
		}
		applied = true
		if _, err := e.datasets.Transition(inner, datasetID, types.DatasetFailed, nil); err != nil {
			return fmt.Errorf("dataset transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		e.log.Info("job no longer active; failure not recorded", "job_id", jobRef)
		return nil
	}
	e.log.Warn("ML dispatch failed permanently", "dataset_id", datasetID, "job_id", jobRef, "error", cause)
	e.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditMLJobFailed,
		fmt.Sprintf("ML processing job failed for dataset #%d: %s", datasetID, cause),
		triggeredBy,
		map[string]any{"dataset_id": datasetID, "job_reference": jobRef, "error": cause},
	)
	e.cache.Invalidate(ctx)
	return nil
}

func (e *dispatchExecutor) DeliverExplain(ctx context.Context, datasetID uint, jobRef string) error {
	return e.ml.RequestExplanations(ctx, mlclient.ExplainRequest{
		DatasetID:   datasetID,
		JobID:       jobRef,
		CallbackURL: e.urls.Explain,
	})
}

func (e *dispatchExecutor) FailExplain(ctx context.Context, datasetID uint, jobRef string, cause string) {
	cause = truncate(cause, MaxStoredError)
	e.log.Warn("explanation request failed permanently", "dataset_id", datasetID, "job_id", jobRef, "error", cause)
	e.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditMLExplainRequestFailed,
		fmt.Sprintf("Explanation request failed for dataset #%d: %s", datasetID, cause),
		nil,
		map[string]any{"dataset_id": datasetID, "job_reference": jobRef, "error": cause},
	)
}
