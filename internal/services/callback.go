package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/modules/explain"
	"github.com/yungbote/fraudguard-backend/internal/observability"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

const resultInsertBatchSize = 500

type CallbackAck struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// CallbackService ingests the ML worker's asynchronous results. It owns the
// terminal transitions of jobs and datasets.
type CallbackService interface {
	ReceiveResults(ctx context.Context, p *ResultsPayload) (*CallbackAck, error)
	ReceiveExplanations(ctx context.Context, p *ExplanationsPayload) (*CallbackAck, error)
}

type CallbackConfig struct {
	RequestExplanations bool
}

type callbackService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          CallbackConfig
	datasets     repos.DatasetRepo
	jobs         repos.JobLogRepo
	results      repos.FraudResultRepo
	explanations repos.FraudExplanationRepo
	dispatcher   Dispatcher
	audit        AuditService
	cache        SummaryCache
}

func NewCallbackService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg CallbackConfig,
	datasets repos.DatasetRepo,
	jobs repos.JobLogRepo,
	results repos.FraudResultRepo,
	explanations repos.FraudExplanationRepo,
	dispatcher Dispatcher,
	audit AuditService,
	cache SummaryCache,
) CallbackService {
	if cache == nil {
		cache = NewNoopSummaryCache()
	}
	return &callbackService{
		db:           db,
		log:          baseLog.With("service", "CallbackService"),
		cfg:          cfg,
		datasets:     datasets,
		jobs:         jobs,
		results:      results,
		explanations: explanations,
		dispatcher:   dispatcher,
		audit:        audit,
		cache:        cache,
	}
}

func (s *callbackService) ReceiveResults(ctx context.Context, p *ResultsPayload) (ack *CallbackAck, err error) {
	ctx = ctxutil.Default(ctx)
	if p == nil {
		return nil, apierr.Validation(map[string]string{"body": "payload is required"})
	}
	ctx, span := observability.Tracer().Start(ctx, "callback.results",
		trace.WithAttributes(
			attribute.Int64("dataset.id", p.DatasetID),
			attribute.String("job.id", p.JobID),
			attribute.String("callback.status", p.Status),
			attribute.Int("results.count", len(p.Results)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if fields := p.Validate(); len(fields) > 0 {
		return nil, apierr.Validation(fields)
	}
	dbc := dbctx.Context{Ctx: ctx}
	datasetID := uint(p.DatasetID)
	ds, err := s.datasets.GetByID(dbc, datasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if ds == nil {
		return nil, apierr.NotFound("dataset_not_found", fmt.Errorf("dataset #%d not found", datasetID))
	}
	job, err := s.jobs.GetByReference(dbc, p.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job log: %w", err)
	}
	if job == nil || job.DatasetID != datasetID {
		return nil, apierr.Validation(map[string]string{
			"job_id": "job_id does not match an active job for this dataset",
		})
	}
	if job.Status.Terminal() {
		return nil, apierr.Conflict("job_already_finalized",
			fmt.Errorf("job %s is already %s", job.JobReference, job.Status))
	}

	if p.Status == CallbackStatusFailed {
		return s.recordFailure(ctx, ds, job, p)
	}
	return s.recordSuccess(ctx, ds, job, p)
}

func (s *callbackService) recordFailure(ctx context.Context, ds *types.Dataset, job *types.JobLog, p *ResultsPayload) (*CallbackAck, error) {
	msg := DefaultMLError
	if p.ErrorMessage != nil && strings.TrimSpace(*p.ErrorMessage) != "" {
		msg = truncate(strings.TrimSpace(*p.ErrorMessage), MaxStoredError)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		now := time.Now()
		ok, err := s.jobs.Transition(inner, job.JobReference, types.JobFailed, map[string]interface{}{
			"error_message": msg,
			"completed_at":  now,
		})
		if err != nil {
			return fmt.Errorf("job transition: %w", err)
		}
		if !ok {
			return errJobRaced(job.JobReference)
		}
		ok, err = s.datasets.Transition(inner, ds.ID, types.DatasetFailed, nil)
		if err != nil {
			return fmt.Errorf("dataset transition: %w", err)
		}
		if !ok {
			return errDatasetRaced(ds.ID, types.DatasetFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Warn("ML worker reported failure", "dataset_id", ds.ID, "job_id", job.JobReference, "error", msg)
	s.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditMLJobFailed,
		fmt.Sprintf("ML processing job failed for dataset #%d: %s", ds.ID, msg),
		nil,
		map[string]any{"dataset_id": ds.ID, "job_reference": job.JobReference, "error": msg},
	)
	s.cache.Invalidate(ctx)
	return &CallbackAck{Message: "Failure recorded"}, nil
}

func (s *callbackService) recordSuccess(ctx context.Context, ds *types.Dataset, job *types.JobLog, p *ResultsPayload) (*CallbackAck, error) {
	now := time.Now()
	rows := make([]*types.FraudResult, 0, len(p.Results))
	fraudCount := 0
	for _, r := range p.Results {
		row := &types.FraudResult{
			DatasetID:     ds.ID,
			JobReference:  job.JobReference,
			TransactionID: r.TransactionID.String(),
			FraudScore:    *r.FraudScore,
			IsFraud:       bool(*r.IsFraud),
			IsAnomaly:     bool(*r.IsAnomaly),
			VendorName:    r.VendorName,
			Region:        r.Region,
			Amount:        r.Amount,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if r.VendorID != nil {
			v := r.VendorID.String()
			row.VendorID = &v
		}
		if row.IsFraud {
			fraudCount++
		}
		rows = append(rows, row)
	}
	count := len(rows)

	explainQueued := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.results.CreateBatch(inner, rows, resultInsertBatchSize); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
		ok, err := s.datasets.Transition(inner, ds.ID, types.DatasetProcessed, map[string]interface{}{
			"row_count": count,
		})
		if err != nil {
			return fmt.Errorf("dataset transition: %w", err)
		}
		if !ok {
			return errDatasetRaced(ds.ID, types.DatasetProcessed)
		}
		ok, err = s.jobs.Transition(inner, job.JobReference, types.JobCompleted, map[string]interface{}{
			"completed_at": now,
		})
		if err != nil {
			return fmt.Errorf("job transition: %w", err)
		}
		if !ok {
			return errJobRaced(job.JobReference)
		}
		if s.cfg.RequestExplanations && s.dispatcher != nil {
			if err := s.dispatcher.EnqueueExplain(inner, ds.ID, job.JobReference); err != nil {
				return err
			}
			explainQueued = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if explainQueued {
		s.dispatcher.Wake()
	}

	s.log.Info("ML results stored", "dataset_id", ds.ID, "job_id", job.JobReference, "count", count, "fraud_count", fraudCount)
	s.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditMLResultsReceived,
		fmt.Sprintf("ML results received for dataset #%d: %d records", ds.ID, count),
		nil,
		map[string]any{
			"dataset_id":    ds.ID,
			"job_reference": job.JobReference,
			"count":         count,
			"fraud_count":   fraudCount,
		},
	)
	s.cache.Invalidate(ctx)
	return &CallbackAck{Message: "Results stored successfully", Count: count}, nil
}

func (s *callbackService) ReceiveExplanations(ctx context.Context, p *ExplanationsPayload) (ack *CallbackAck, err error) {
	ctx = ctxutil.Default(ctx)
	if p == nil {
		return nil, apierr.Validation(map[string]string{"body": "payload is required"})
	}
	ctx, span := observability.Tracer().Start(ctx, "callback.explanations",
		trace.WithAttributes(
			attribute.Int64("dataset.id", p.DatasetID),
			attribute.Int("explanations.count", len(p.Explanations)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if fields := p.Validate(); len(fields) > 0 {
		return nil, apierr.Validation(fields)
	}
	datasetID := uint(p.DatasetID)
	ds, err := s.datasets.GetByID(dbctx.Context{Ctx: ctx}, datasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if ds == nil {
		return nil, apierr.NotFound("dataset_not_found", fmt.Errorf("dataset #%d not found", datasetID))
	}

	now := time.Now()
	rows := make([]*types.FraudExplanation, 0, len(p.Explanations))
	for _, e := range p.Explanations {
		features := make([]types.Feature, 0, len(e.TopFeatures))
		for _, f := range e.TopFeatures {
			features = append(features, types.Feature{
				Name:   strings.TrimSpace(f.Name),
				Value:  *f.Value,
				Impact: *f.Impact,
			})
		}
		row := &types.FraudExplanation{
			DatasetID:     ds.ID,
			TransactionID: e.TransactionID.String(),
			TopFeatures:   datatypes.JSONSlice[types.Feature](features),
			BaseValue:     e.BaseValue,
			Narrative:     explain.Compose(features),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if raw := strings.TrimSpace(string(e.ShapValues)); raw != "" && raw != "null" {
			row.ShapValues = datatypes.JSON(raw)
		}
		rows = append(rows, row)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.explanations.Upsert(dbctx.Context{Ctx: ctx, Tx: tx}, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("store explanations: %w", err)
	}
	s.log.Info("explanations stored", "dataset_id", ds.ID, "count", len(rows))
	s.audit.Record(dbctx.Context{Ctx: ctx},
		types.AuditMLExplanationsReceived,
		fmt.Sprintf("Explanations received for dataset #%d: %d records", ds.ID, len(rows)),
		nil,
		map[string]any{"dataset_id": ds.ID, "count": len(rows)},
	)
	return &CallbackAck{Message: "Explanations stored successfully", Count: len(rows)}, nil
}

func errJobRaced(ref string) error {
	return apierr.Conflict("job_already_finalized", fmt.Errorf("job %s was finalized concurrently", ref))
}

func errDatasetRaced(id uint, to types.DatasetStatus) error {
	return apierr.New(http.StatusConflict, "illegal_dataset_transition",
		fmt.Errorf("dataset #%d cannot move to %s: %w", id, to, types.ErrIllegalTransition))
}
