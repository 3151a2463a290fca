package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

func (f *fixture) callbacks(requestExplanations bool) CallbackService {
	return NewCallbackService(f.db, f.log, CallbackConfig{RequestExplanations: requestExplanations},
		f.datasets, f.jobs, f.results, f.explanations, f.dispatcher, f.audit, f.cache)
}

func decodeResults(t *testing.T, raw string) *ResultsPayload {
	t.Helper()
	var p ResultsPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode results payload: %v", err)
	}
	return &p
}

func TestReceiveResultsValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.callbacks(false)

	p := decodeResults(t, `{"dataset_id":0,"job_id":"","status":"success","results":[
		{"transaction_id":"T1","fraud_score":1.4,"is_fraud":true,"is_anomaly":false},
		{"transaction_id":"T1","fraud_score":0.2,"is_fraud":"0"}
	]}`)
	_, err := svc.ReceiveResults(context.Background(), p)
	ae := requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	for _, key := range []string{
		"dataset_id",
		"job_id",
		"results[0].fraud_score",
		"results[1].transaction_id",
		"results[1].is_anomaly",
	} {
		if _, ok := ae.Fields[key]; !ok {
			t.Fatalf("expected field error for %s, got %v", key, ae.Fields)
		}
	}
	if _, ok := ae.Fields["results[1].is_fraud"]; ok {
		t.Fatalf("string boolean should be accepted: %v", ae.Fields)
	}
}

func TestReceiveResultsUnknownDataset(t *testing.T) {
	f := newFixture(t)
	p := decodeResults(t, `{"dataset_id":999,"job_id":"ref","status":"failed"}`)
	_, err := f.callbacks(false).ReceiveResults(context.Background(), p)
	requireAPIError(t, err, http.StatusNotFound, "dataset_not_found")
}

func TestReceiveResultsJobOnOtherDataset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedDataset(t, ctx, f.db, 1, types.DatasetProcessing)
	b := testutil.SeedDataset(t, ctx, f.db, 1, types.DatasetProcessing)
	job := testutil.SeedJobLog(t, ctx, f.db, b.ID, types.JobProcessing)

	p := &ResultsPayload{DatasetID: int64(a.ID), JobID: job.JobReference, Status: CallbackStatusFailed}
	_, err := f.callbacks(false).ReceiveResults(ctx, p)
	ae := requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	if _, ok := ae.Fields["job_id"]; !ok {
		t.Fatalf("expected job_id field error, got %v", ae.Fields)
	}
}

func TestReceiveResultsSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ds := testutil.SeedDataset(t, ctx, f.db, 1, types.DatasetProcessing)
	job := testutil.SeedJobLog(t, ctx, f.db, ds.ID, types.JobProcessing)
	svc := f.callbacks(true)

	raw := `{"dataset_id":` + jsonUint(ds.ID) + `,"job_id":"` + job.JobReference + `","status":"success","results":[
		{"transaction_id":"T1","fraud_score":0.92,"is_fraud":true,"is_anomaly":1,"vendor_id":42,"region":"EU","amount":120.5},
		{"transaction_id":2,"fraud_score":0.1,"is_fraud":false,"is_anomaly":false}
	]}`
	ack, err := svc.ReceiveResults(ctx, decodeResults(t, raw))
	if err != nil {
		t.Fatalf("ReceiveResults: %v", err)
	}
	if ack.Count != 2 || ack.Message != "Results stored successfully" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	got := f.reloadDataset(t, ds.ID)
	if got.Status != types.DatasetProcessed || got.RowCount == nil || *got.RowCount != 2 {
		t.Fatalf("dataset not processed: status=%s row_count=%v", got.Status, got.RowCount)
	}
	gotJob := f.reloadJob(t, job.JobReference)
	if gotJob.Status != types.JobCompleted || gotJob.CompletedAt == nil {
		t.Fatalf("job not completed: %+v", gotJob)
	}

	var stored []types.FraudResult
	if err := f.db.Where("dataset_id = ?", ds.ID).Order("transaction_id ASC").Find(&stored).Error; err != nil {
		t.Fatalf("load results: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored results, got %d", len(stored))
	}
	if stored[0].TransactionID != "2" || stored[1].TransactionID != "T1" {
		t.Fatalf("unexpected transaction ids: %s, %s", stored[0].TransactionID, stored[1].TransactionID)
	}
	if !stored[1].IsAnomaly || stored[1].VendorID == nil || *stored[1].VendorID != "42" {
		t.Fatalf("flexible fields not normalized: %+v", stored[1])
	}
	if stored[1].JobReference != job.JobReference {
		t.Fatalf("result missing job reference")
	}

	tasks, err := f.tasks.ListByJobReference(dbcFor(ctx), job.JobReference)
	if err != nil {
		t.Fatalf("ListByJobReference: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TaskType != types.TaskTypeDatasetExplain {
		t.Fatalf("expected one explain task, got %+v", tasks)
	}
	if f.waker.n.Load() != 1 {
		t.Fatalf("expected relay wake after commit, got %d", f.waker.n.Load())
	}
	if n := f.auditCount(t, types.AuditMLResultsReceived); n != 1 {
		t.Fatalf("expected one ml_results_received audit row, got %d", n)
	}

	// A second delivery for the same job is rejected and stores nothing.
	_, err = svc.ReceiveResults(ctx, decodeResults(t, raw))
	requireAPIError(t, err, http.StatusConflict, "job_already_finalized")
	var count int64
	f.db.Model(&types.FraudResult{}).Where("dataset_id = ?", ds.ID).Count(&count)
	if count != 2 {
		t.Fatalf("duplicate delivery changed stored results: %d", count)
	}
}

func TestReceiveResultsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ds := testutil.SeedDataset(t, ctx, f.db, 1, types.DatasetProcessing)
	job := testutil.SeedJobLog(t, ctx, f.db, ds.ID, types.JobProcessing)

	p := &ResultsPayload{DatasetID: int64(ds.ID), JobID: job.JobReference, Status: CallbackStatusFailed}
	ack, err := f.callbacks(true).ReceiveResults(ctx, p)
	if err != nil {
		t.Fatalf("ReceiveResults: %v", err)
	}
	if ack.Count != 0 {
		t.Fatalf("failure ack should carry no count: %+v", ack)
	}
	if got := f.reloadDataset(t, ds.ID); got.Status != types.DatasetFailed {
		t.Fatalf("expected dataset failed, got %s", got.Status)
	}
	gotJob := f.reloadJob(t, job.JobReference)
	if gotJob.Status != types.JobFailed || gotJob.ErrorMessage == nil || *gotJob.ErrorMessage != DefaultMLError {
		t.Fatalf("unexpected job after failure: status=%s error=%v", gotJob.Status, gotJob.ErrorMessage)
	}
	if n := f.auditCount(t, types.AuditMLJobFailed); n != 1 {
		t.Fatalf("expected one ml_job_failed audit row, got %d", n)
	}
}

func TestReceiveResultsIllegalDatasetTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// The dataset was never dispatched, so it cannot become processed.
	ds := testutil.SeedDataset(t, ctx, f.db, 1, types.DatasetPending)
	job := testutil.SeedJobLog(t, ctx, f.db, ds.ID, types.JobPending)

	raw := `{"dataset_id":` + jsonUint(ds.ID) + `,"job_id":"` + job.JobReference + `","status":"success","results":[
		{"transaction_id":"T1","fraud_score":0.5,"is_fraud":false,"is_anomaly":false}
	]}`
	_, err := f.callbacks(false).ReceiveResults(ctx, decodeResults(t, raw))
	requireAPIError(t, err, http.StatusConflict, "illegal_dataset_transition")

	var count int64
	f.db.Model(&types.FraudResult{}).Count(&count)
	if count != 0 {
		t.Fatalf("rolled back transaction left %d results", count)
	}
	if got := f.reloadJob(t, job.JobReference); got.Status != types.JobPending {
		t.Fatalf("job should be untouched, got %s", got.Status)
	}
}

func TestReceiveExplanationsUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ds := testutil.SeedDataset(t, ctx, f.db, 1, types.DatasetProcessed)
	svc := f.callbacks(false)

	decode := func(raw string) *ExplanationsPayload {
		var p ExplanationsPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			t.Fatalf("decode explanations payload: %v", err)
		}
		return &p
	}
	first := `{"dataset_id":` + jsonUint(ds.ID) + `,"explanations":[
		{"transaction_id":"T1","top_features":[{"name":"amount","value":950,"impact":0.4}],"shap_values":[0.4],"base_value":0.1}
	]}`
	ack, err := svc.ReceiveExplanations(ctx, decode(first))
	if err != nil {
		t.Fatalf("ReceiveExplanations: %v", err)
	}
	if ack.Count != 1 || ack.Message != "Explanations stored successfully" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	second := `{"dataset_id":` + jsonUint(ds.ID) + `,"explanations":[
		{"transaction_id":"T1","top_features":[{"name":"hour","value":3,"impact":0.3},{"name":"amount","value":950,"impact":-0.1}]}
	]}`
	if _, err := svc.ReceiveExplanations(ctx, decode(second)); err != nil {
		t.Fatalf("ReceiveExplanations (update): %v", err)
	}

	var rows []types.FraudExplanation
	if err := f.db.Where("dataset_id = ?", ds.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load explanations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", len(rows))
	}
	if len(rows[0].TopFeatures) != 2 || rows[0].TopFeatures[0].Name != "hour" {
		t.Fatalf("features not replaced: %+v", rows[0].TopFeatures)
	}
	if rows[0].Narrative == "" {
		t.Fatalf("expected a composed narrative")
	}
	if n := f.auditCount(t, types.AuditMLExplanationsReceived); n != 2 {
		t.Fatalf("expected two ml_explanations_received rows, got %d", n)
	}
}

func TestReceiveExplanationsValidation(t *testing.T) {
	f := newFixture(t)
	var p ExplanationsPayload
	raw := `{"dataset_id":1,"explanations":[{"transaction_id":"T1","top_features":[{"name":"","value":1}],"shap_values":3}]}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err := f.callbacks(false).ReceiveExplanations(context.Background(), &p)
	ae := requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	for _, key := range []string{
		"explanations[0].top_features[0].name",
		"explanations[0].top_features[0].impact",
		"explanations[0].shap_values",
	} {
		if _, ok := ae.Fields[key]; !ok {
			t.Fatalf("expected field error for %s, got %v", key, ae.Fields)
		}
	}
}
