package services

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/platform/mlclient"
)

type countingWaker struct{ n atomic.Int32 }

func (w *countingWaker) Wake() { w.n.Add(1) }

type fixture struct {
	db           *gorm.DB
	log          *logger.Logger
	datasets     repos.DatasetRepo
	jobs         repos.JobLogRepo
	results      repos.FraudResultRepo
	explanations repos.FraudExplanationRepo
	tasks        repos.DispatchTaskRepo
	audits       repos.AuditLogRepo
	settings     repos.SettingRepo
	audit        AuditService
	dispatcher   Dispatcher
	waker        *countingWaker
	cache        SummaryCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{
		db:           db,
		log:          log,
		datasets:     repos.NewDatasetRepo(db, log),
		jobs:         repos.NewJobLogRepo(db, log),
		results:      repos.NewFraudResultRepo(db, log),
		explanations: repos.NewFraudExplanationRepo(db, log),
		tasks:        repos.NewDispatchTaskRepo(db, log),
		audits:       repos.NewAuditLogRepo(db, log),
		settings:     repos.NewSettingRepo(db, log),
		waker:        &countingWaker{},
	}
	f.audit = NewAuditService(log, f.audits)
	f.dispatcher = NewDispatcher(db, log, DispatchConfig{MaxAttempts: 3},
		NewCallbackURLs("http://app.test"), f.datasets, f.jobs, f.tasks)
	f.dispatcher.SetWaker(f.waker)
	return f
}

func asUser(id uint, role string) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID:    id,
		Role:      role,
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
	})
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&types.AuditLog{}).Where("action = ?", action).Count(&n).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	return n
}

func (f *fixture) reloadDataset(t *testing.T, id uint) *types.Dataset {
	t.Helper()
	var ds types.Dataset
	if err := f.db.First(&ds, id).Error; err != nil {
		t.Fatalf("reload dataset: %v", err)
	}
	return &ds
}

func (f *fixture) reloadJob(t *testing.T, ref string) *types.JobLog {
	t.Helper()
	var job types.JobLog
	if err := f.db.Where("job_reference = ?", ref).First(&job).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	return &job
}

func requireAPIError(t *testing.T, err error, status int, code string) *apierr.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s, got nil error", status, code)
	}
	ae, ok := apierr.As(err)
	if !ok {
		t.Fatalf("expected api error, got %T: %v", err, err)
	}
	if ae.Status != status || (code != "" && ae.Code != code) {
		t.Fatalf("expected %d %s, got %d %s (%v)", status, code, ae.Status, ae.Code, ae.Err)
	}
	return ae
}

func jsonUint(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func dbcFor(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

type stubML struct {
	processErr error
	explainErr error
	healthErr  error
	processed  []mlclient.ProcessDatasetRequest
	explained  []mlclient.ExplainRequest
}

func (m *stubML) ProcessDataset(ctx context.Context, req mlclient.ProcessDatasetRequest) error {
	m.processed = append(m.processed, req)
	return m.processErr
}

func (m *stubML) RequestExplanations(ctx context.Context, req mlclient.ExplainRequest) error {
	m.explained = append(m.explained, req)
	return m.explainErr
}

func (m *stubML) Health(ctx context.Context) (*mlclient.Health, error) {
	if m.healthErr != nil {
		return nil, m.healthErr
	}
	return &mlclient.Health{Status: "ok", StatusCode: 200}, nil
}
