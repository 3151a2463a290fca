package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

const (
	DefaultTimeSeriesDays = 90
	MaxTimeSeriesDays     = 365
	VendorSummaryLimit    = 50
	AnomalyLimit          = 100
	recentLimit           = 5
)

type ResultView struct {
	*types.FraudResult
	RiskLevel string `json:"risk_level"`
}

type DashboardStats struct {
	TotalDatasets   int64 `json:"total_datasets"`
	PendingJobs     int64 `json:"pending_jobs"`
	FlaggedToday    int64 `json:"flagged_today"`
	HighRiskCount   int64 `json:"high_risk_count"`
	HighRiskVendors int64 `json:"high_risk_vendors"`
	HighThreshold   int   `json:"high_threshold"`
}

type RecentActivity struct {
	Datasets []*types.Dataset `json:"datasets"`
	Jobs     []*types.JobLog  `json:"jobs,omitempty"`
}

type ResultQuery struct {
	DatasetID uint
	IsFraud   *bool
	MinScore  *float64
	Page      repos.Page
}

type DashboardService interface {
	ListResults(ctx context.Context, q ResultQuery) ([]ResultView, int64, error)
	GetResult(ctx context.Context, id uint) (*ResultView, error)
	GeoSummary(ctx context.Context, datasetID uint) ([]repos.RegionSummary, error)
	VendorSummary(ctx context.Context, datasetID uint) ([]repos.VendorSummary, error)
	TimeSeries(ctx context.Context, days int) ([]repos.DaySummary, error)
	Anomalies(ctx context.Context) ([]ResultView, error)
	Stats(ctx context.Context) (*DashboardStats, error)
	Recent(ctx context.Context) (*RecentActivity, error)
}

type dashboardService struct {
	log          *logger.Logger
	datasets     repos.DatasetRepo
	jobs         repos.JobLogRepo
	results      repos.FraudResultRepo
	explanations repos.FraudExplanationRepo
	settings     SettingsService
	cache        SummaryCache
}

func NewDashboardService(
	baseLog *logger.Logger,
	datasets repos.DatasetRepo,
	jobs repos.JobLogRepo,
	results repos.FraudResultRepo,
	explanations repos.FraudExplanationRepo,
	settings SettingsService,
	cache SummaryCache,
) DashboardService {
	if cache == nil {
		cache = NewNoopSummaryCache()
	}
	return &dashboardService{
		log:          baseLog.With("service", "DashboardService"),
		datasets:     datasets,
		jobs:         jobs,
		results:      results,
		explanations: explanations,
		settings:     settings,
		cache:        cache,
	}
}

// scope restricts vendors to results of their own datasets.
func scope(ctx context.Context, datasetID uint) (repos.ResultScope, *ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == 0 {
		return repos.ResultScope{}, nil, errUnauthenticated
	}
	sc := repos.ResultScope{DatasetID: datasetID}
	if !rd.IsPrivileged() {
		owner := rd.UserID
		sc.OwnerID = &owner
	}
	return sc, rd, nil
}

func cacheKey(kind string, sc repos.ResultScope, extra any) string {
	owner := "all"
	if sc.OwnerID != nil {
		owner = fmt.Sprint(*sc.OwnerID)
	}
	return fmt.Sprintf("%s:owner=%s:ds=%d:%v", kind, owner, sc.DatasetID, extra)
}

func views(rows []*types.FraudResult) []ResultView {
	out := make([]ResultView, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResultView{FraudResult: r, RiskLevel: types.RiskLevel(r.FraudScore)})
	}
	return out
}

func (s *dashboardService) ListResults(ctx context.Context, q ResultQuery) ([]ResultView, int64, error) {
	sc, _, err := scope(ctx, q.DatasetID)
	if err != nil {
		return nil, 0, err
	}
	if q.MinScore != nil && (*q.MinScore < 0 || *q.MinScore > 1) {
		return nil, 0, apierr.Validation(map[string]string{"min_score": "min_score must be between 0 and 1"})
	}
	rows, total, err := s.results.List(dbctx.Context{Ctx: ctx}, repos.ResultFilter{
		Scope:    sc,
		IsFraud:  q.IsFraud,
		MinScore: q.MinScore,
		Page:     q.Page,
	})
	if err != nil {
		return nil, 0, err
	}
	return views(rows), total, nil
}

func (s *dashboardService) GetResult(ctx context.Context, id uint) (*ResultView, error) {
	sc, _, err := scope(ctx, 0)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.results.GetByID(dbc, id, sc)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("result_not_found", fmt.Errorf("fraud result #%d not found", id))
	}
	exp, err := s.explanations.GetByTransaction(dbc, row.TransactionID, row.DatasetID)
	if err != nil {
		return nil, err
	}
	row.Explanation = exp
	return &ResultView{FraudResult: row, RiskLevel: types.RiskLevel(row.FraudScore)}, nil
}

func (s *dashboardService) GeoSummary(ctx context.Context, datasetID uint) ([]repos.RegionSummary, error) {
	sc, _, err := scope(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	key := cacheKey("geo", sc, "")
	var out []repos.RegionSummary
	if s.cache.Get(ctx, key, &out) {
		return out, nil
	}
	out, err = s.results.GeoSummary(dbctx.Context{Ctx: ctx}, sc)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, out)
	return out, nil
}

func (s *dashboardService) VendorSummary(ctx context.Context, datasetID uint) ([]repos.VendorSummary, error) {
	sc, _, err := scope(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	key := cacheKey("vendor", sc, VendorSummaryLimit)
	var out []repos.VendorSummary
	if s.cache.Get(ctx, key, &out) {
		return out, nil
	}
	out, err = s.results.VendorSummary(dbctx.Context{Ctx: ctx}, sc, VendorSummaryLimit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, out)
	return out, nil
}

func (s *dashboardService) TimeSeries(ctx context.Context, days int) ([]repos.DaySummary, error) {
	sc, _, err := scope(ctx, 0)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultTimeSeriesDays
	}
	if days > MaxTimeSeriesDays {
		days = MaxTimeSeriesDays
	}
	key := cacheKey("timeseries", sc, days)
	var out []repos.DaySummary
	if s.cache.Get(ctx, key, &out) {
		return out, nil
	}
	since := time.Now().AddDate(0, 0, -days)
	out, err = s.results.TimeSeries(dbctx.Context{Ctx: ctx}, sc, since)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, out)
	return out, nil
}

func (s *dashboardService) Anomalies(ctx context.Context) ([]ResultView, error) {
	sc, _, err := scope(ctx, 0)
	if err != nil {
		return nil, err
	}
	rows, err := s.results.Anomalies(dbctx.Context{Ctx: ctx}, sc, AnomalyLimit)
	if err != nil {
		return nil, err
	}
	return views(rows), nil
}

func (s *dashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	sc, _, err := scope(ctx, 0)
	if err != nil {
		return nil, err
	}
	thresholds, err := s.settings.Thresholds(ctx)
	if err != nil {
		return nil, err
	}
	key := cacheKey("stats", sc, thresholds.High)
	var out DashboardStats
	if s.cache.Get(ctx, key, &out) {
		return &out, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	if out.TotalDatasets, err = s.datasets.Count(dbc, sc.OwnerID); err != nil {
		return nil, err
	}
	counts, err := s.jobs.CountByStatus(dbc)
	if err != nil {
		return nil, err
	}
	out.PendingJobs = counts[types.JobPending]
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if out.FlaggedToday, err = s.results.CountFlaggedSince(dbc, sc, midnight); err != nil {
		return nil, err
	}
	out.HighThreshold = thresholds.High
	if out.HighRiskCount, err = s.results.CountAtLeastScore(dbc, sc, float64(thresholds.High)/100); err != nil {
		return nil, err
	}
	if out.HighRiskVendors, err = s.results.CountFraudVendors(dbc, sc); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, out)
	return &out, nil
}

func (s *dashboardService) Recent(ctx context.Context) (*RecentActivity, error) {
	_, rd, err := scope(ctx, 0)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	f := repos.DatasetFilter{Page: repos.Page{Page: 1, PerPage: recentLimit}}
	if !rd.IsPrivileged() {
		owner := rd.UserID
		f.UploadedBy = &owner
	}
	datasets, _, err := s.datasets.List(dbc, f)
	if err != nil {
		return nil, err
	}
	out := &RecentActivity{Datasets: datasets}
	if rd.IsPrivileged() {
		jobs, _, err := s.jobs.List(dbc, repos.JobLogFilter{Page: repos.Page{Page: 1, PerPage: recentLimit}})
		if err != nil {
			return nil, err
		}
		out.Jobs = jobs
	}
	return out, nil
}
