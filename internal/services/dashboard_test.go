package services

import (
	"context"
	"net/http"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

func (f *fixture) dashboard() DashboardService {
	return NewDashboardService(f.log, f.datasets, f.jobs, f.results, f.explanations, f.settingsService(nil), nil)
}

func seedScoredDatasets(t *testing.T, f *fixture) (mine, theirs *types.Dataset) {
	t.Helper()
	bg := context.Background()
	mine = testutil.SeedDataset(t, bg, f.db, 7, types.DatasetProcessed)
	theirs = testutil.SeedDataset(t, bg, f.db, 8, types.DatasetProcessed)
	testutil.SeedResult(t, bg, f.db, mine.ID, "T1", 0.92, true)
	testutil.SeedResult(t, bg, f.db, mine.ID, "T2", 0.45, false)
	testutil.SeedResult(t, bg, f.db, theirs.ID, "T1", 0.75, true)
	return mine, theirs
}

func TestDashboardListScopesVendors(t *testing.T) {
	f := newFixture(t)
	mine, _ := seedScoredDatasets(t, f)
	svc := f.dashboard()

	rows, total, err := svc.ListResults(asUser(7, "vendor"), ResultQuery{})
	if err != nil {
		t.Fatalf("ListResults (vendor): %v", err)
	}
	if total != 2 {
		t.Fatalf("vendor should see 2 results, got %d", total)
	}
	for _, r := range rows {
		if r.DatasetID != mine.ID {
			t.Fatalf("vendor saw result from dataset %d", r.DatasetID)
		}
	}

	_, total, err = svc.ListResults(asUser(1, "analyst"), ResultQuery{})
	if err != nil {
		t.Fatalf("ListResults (analyst): %v", err)
	}
	if total != 3 {
		t.Fatalf("analyst should see 3 results, got %d", total)
	}

	bad := 1.5
	_, _, err = svc.ListResults(asUser(1, "analyst"), ResultQuery{MinScore: &bad})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
}

func TestDashboardGetResultWithExplanation(t *testing.T) {
	f := newFixture(t)
	mine, theirs := seedScoredDatasets(t, f)
	bg := context.Background()
	exp := &types.FraudExplanation{
		DatasetID:     mine.ID,
		TransactionID: "T1",
		TopFeatures:   datatypes.JSONSlice[types.Feature]{{Name: "amount", Value: 950, Impact: 0.4}},
	}
	if err := f.db.WithContext(bg).Create(exp).Error; err != nil {
		t.Fatalf("seed explanation: %v", err)
	}
	svc := f.dashboard()

	rows, _, err := svc.ListResults(asUser(7, "vendor"), ResultQuery{DatasetID: mine.ID})
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	var id uint
	for _, r := range rows {
		if r.TransactionID == "T1" {
			id = r.ID
		}
	}
	view, err := svc.GetResult(asUser(7, "vendor"), id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if view.RiskLevel != types.RiskCritical {
		t.Fatalf("expected critical risk level, got %s", view.RiskLevel)
	}
	if view.Explanation == nil || len(view.Explanation.TopFeatures) != 1 {
		t.Fatalf("expected attached explanation, got %+v", view.Explanation)
	}

	theirRows, _, err := svc.ListResults(asUser(8, "vendor"), ResultQuery{DatasetID: theirs.ID})
	if err != nil || len(theirRows) != 1 {
		t.Fatalf("ListResults (other vendor): %d, %v", len(theirRows), err)
	}
	_, err = svc.GetResult(asUser(7, "vendor"), theirRows[0].ID)
	requireAPIError(t, err, http.StatusNotFound, "result_not_found")
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	mine, _ := seedScoredDatasets(t, f)
	testutil.SeedJobLog(t, context.Background(), f.db, mine.ID, types.JobPending)
	svc := f.dashboard()

	stats, err := svc.Stats(asUser(1, "admin"))
	if err != nil {
		t.Fatalf("Stats (admin): %v", err)
	}
	if stats.TotalDatasets != 2 || stats.PendingJobs != 1 || stats.FlaggedToday != 2 {
		t.Fatalf("unexpected admin stats: %+v", stats)
	}
	// Default high threshold is 70, so scores 0.92 and 0.75 count.
	if stats.HighThreshold != 70 || stats.HighRiskCount != 2 {
		t.Fatalf("unexpected high risk stats: %+v", stats)
	}

	stats, err = svc.Stats(asUser(7, "vendor"))
	if err != nil {
		t.Fatalf("Stats (vendor): %v", err)
	}
	if stats.TotalDatasets != 1 || stats.HighRiskCount != 1 || stats.FlaggedToday != 1 {
		t.Fatalf("unexpected vendor stats: %+v", stats)
	}

	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatalf("expected unauthenticated error")
	}
}

func TestDashboardTimeSeriesAndRecent(t *testing.T) {
	f := newFixture(t)
	seedScoredDatasets(t, f)
	svc := f.dashboard()

	days, err := svc.TimeSeries(asUser(1, "admin"), 0)
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if len(days) != 1 || days[0].Total != 3 || days[0].FraudCount != 2 {
		t.Fatalf("unexpected time series: %+v", days)
	}

	recent, err := svc.Recent(asUser(7, "vendor"))
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent.Datasets) != 1 || recent.Jobs != nil {
		t.Fatalf("vendor recent activity should be own datasets only: %+v", recent)
	}
}
