package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

const (
	ResultsCallbackPath = "/api/internal/ml-results"
	ExplainCallbackPath = "/api/internal/ml-explain"
)

// CallbackURLs are the absolute URLs the ML worker posts back to.
type CallbackURLs struct {
	Results string
	Explain string
}

func NewCallbackURLs(publicBaseURL string) CallbackURLs {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	return CallbackURLs{
		Results: base + ResultsCallbackPath,
		Explain: base + ExplainCallbackPath,
	}
}

type DispatchConfig struct {
	MaxAttempts int
	TaskTimeout time.Duration
}

// Waker is notified after new outbox rows commit.
type Waker interface {
	Wake()
}

type Dispatcher interface {
	// Dispatch moves the dataset to processing and records the job entry and
	// its outbox task atomically. When dbc.Tx is set the caller owns the
	// transaction and must call Wake after commit.
	Dispatch(dbc dbctx.Context, ds *types.Dataset, triggeredBy *uint, retryCount int) (*types.JobLog, error)
	EnqueueExplain(dbc dbctx.Context, datasetID uint, jobRef string) error
	SetWaker(w Waker)
	Wake()
}

type dispatcher struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      DispatchConfig
	urls     CallbackURLs
	datasets repos.DatasetRepo
	jobs     repos.JobLogRepo
	tasks    repos.DispatchTaskRepo
	waker    Waker
}

func NewDispatcher(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg DispatchConfig,
	urls CallbackURLs,
	datasets repos.DatasetRepo,
	jobs repos.JobLogRepo,
	tasks repos.DispatchTaskRepo,
) Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Minute
	}
	return &dispatcher{
		db:       db,
		log:      baseLog.With("service", "Dispatcher"),
		cfg:      cfg,
		urls:     urls,
		datasets: datasets,
		jobs:     jobs,
		tasks:    tasks,
	}
}

func (d *dispatcher) SetWaker(w Waker) { d.waker = w }

func (d *dispatcher) Wake() {
	if d.waker != nil {
		d.waker.Wake()
	}
}

func (d *dispatcher) Dispatch(dbc dbctx.Context, ds *types.Dataset, triggeredBy *uint, retryCount int) (*types.JobLog, error) {
	if ds == nil || ds.ID == 0 {
		return nil, fmt.Errorf("missing dataset")
	}
	ctx := ctxutil.Default(dbc.Ctx)
	now := time.Now()
	jobStatus := types.JobPending
	if retryCount > 0 {
		jobStatus = types.JobRetrying
	}
	job := &types.JobLog{
		JobReference: uuid.NewString(),
		DatasetID:    ds.ID,
		TriggeredBy:  triggeredBy,
		Status:       jobStatus,
		RetryCount:   retryCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	run := func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := d.datasets.Transition(inner, ds.ID, types.DatasetProcessing, nil)
		if err != nil {
			return fmt.Errorf("dataset transition: %w", err)
		}
		if !ok {
			return apierr.Conflict("dataset_not_dispatchable",
				fmt.Errorf("dataset #%d cannot move to processing from its current status", ds.ID))
		}
		if err := d.jobs.Create(inner, job); err != nil {
			return fmt.Errorf("create job log: %w", err)
		}
		task := &types.DispatchTask{
			JobReference: job.JobReference,
			TaskType:     types.TaskTypeDatasetProcess,
			DatasetID:    ds.ID,
			MaxAttempts:  d.cfg.MaxAttempts,
			Payload: d.payload(ctx, map[string]any{
				"dataset_path": ds.FilePath,
				"callback_url": d.urls.Results,
			}),
		}
		deadline := now.Add(d.cfg.TaskTimeout)
		task.Deadline = &deadline
		if err := d.tasks.Create(inner, task); err != nil {
			return fmt.Errorf("create dispatch task: %w", err)
		}
		return nil
	}

	var err error
	if dbc.Tx != nil {
		err = run(dbc.Tx)
	} else {
		err = d.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	ds.Status = types.DatasetProcessing
	d.log.Info("dataset dispatched",
		"dataset_id", ds.ID,
		"job_id", job.JobReference,
		"retry_count", retryCount,
		"triggered_by", triggeredBy,
	)
	if dbc.Tx == nil {
		d.Wake()
	}
	return job, nil
}

func (d *dispatcher) EnqueueExplain(dbc dbctx.Context, datasetID uint, jobRef string) error {
	if datasetID == 0 || jobRef == "" {
		return fmt.Errorf("missing dataset_id or job_id")
	}
	ctx := ctxutil.Default(dbc.Ctx)
	deadline := time.Now().Add(d.cfg.TaskTimeout)
	task := &types.DispatchTask{
		JobReference: jobRef,
		TaskType:     types.TaskTypeDatasetExplain,
		DatasetID:    datasetID,
		MaxAttempts:  d.cfg.MaxAttempts,
		Deadline:     &deadline,
		Payload: d.payload(ctx, map[string]any{
			"callback_url": d.urls.Explain,
		}),
	}
	if err := d.tasks.Create(dbc, task); err != nil {
		return fmt.Errorf("create explain task: %w", err)
	}
	return nil
}

// payload carries the request's trace ids so relay logs correlate with the
// upload or retry that created the task.
func (d *dispatcher) payload(ctx context.Context, fields map[string]any) datatypes.JSON {
	ctxutil.GetTraceData(ctx).Stamp(fields)
	return datatypes.JSON(mustJSON(fields))
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
