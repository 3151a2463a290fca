package services

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

func (f *fixture) datasetService(t *testing.T) (DatasetService, DatasetStorage) {
	t.Helper()
	storage, err := NewLocalDatasetStorage(f.log, t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalDatasetStorage: %v", err)
	}
	return NewDatasetService(f.db, f.log, f.datasets, f.jobs, storage, f.dispatcher, f.audit, f.cache), storage
}

const sampleCSV = "transaction_id,amount\nT1,120.50\n"

func TestDatasetUploadDispatches(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.datasetService(t)
	ctx := asUser(7, "vendor")

	ds, job, err := svc.Upload(ctx, UploadInput{
		OriginalName: "q1.csv",
		Size:         int64(len(sampleCSV)),
		ContentType:  "text/csv",
		Body:         strings.NewReader(sampleCSV),
		Label:        "  Q1 Batch ",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ds.Label != "Q1 Batch" || ds.UploadedBy != 7 || ds.OriginalName != "q1.csv" {
		t.Fatalf("unexpected dataset: %+v", ds)
	}
	if ds.FileSize != int64(len(sampleCSV)) {
		t.Fatalf("expected size %d, got %d", len(sampleCSV), ds.FileSize)
	}
	if b, err := os.ReadFile(ds.FilePath); err != nil || string(b) != sampleCSV {
		t.Fatalf("stored file mismatch: %q (%v)", b, err)
	}
	if got := f.reloadDataset(t, ds.ID); got.Status != types.DatasetProcessing {
		t.Fatalf("expected processing, got %s", got.Status)
	}
	if job.Status != types.JobPending || job.RetryCount != 0 || job.TriggeredBy == nil || *job.TriggeredBy != 7 {
		t.Fatalf("unexpected job: %+v", job)
	}

	tasks, err := f.tasks.ListByJobReference(dbcFor(ctx), job.JobReference)
	if err != nil {
		t.Fatalf("ListByJobReference: %v", err)
	}
	if len(tasks) != 1 || tasks[0].TaskType != types.TaskTypeDatasetProcess || tasks[0].Status != types.TaskQueued {
		t.Fatalf("expected one queued process task, got %+v", tasks)
	}
	var payload map[string]any
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("decode task payload: %v", err)
	}
	if payload["callback_url"] != "http://app.test"+ResultsCallbackPath || payload["dataset_path"] != ds.FilePath {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if f.waker.n.Load() != 1 {
		t.Fatalf("expected one wake, got %d", f.waker.n.Load())
	}

	var entry types.AuditLog
	if err := f.db.Where("action = ?", types.AuditDatasetUpload).First(&entry).Error; err != nil {
		t.Fatalf("load audit row: %v", err)
	}
	if entry.UserID == nil || *entry.UserID != 7 || entry.IPAddress != "10.0.0.1" || entry.UserAgent != "test-agent" {
		t.Fatalf("unexpected audit row: %+v", entry)
	}
}

func TestDatasetUploadValidation(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.datasetService(t)

	_, _, err := svc.Upload(asUser(1, "admin"), UploadInput{
		OriginalName: "payload.exe",
		Size:         10,
		Body:         strings.NewReader("0123456789"),
		Label:        strings.Repeat("x", MaxLabelLength+1),
		Description:  strings.Repeat("d", MaxDescriptionLength+1),
	})
	ae := requireAPIError(t, err, http.StatusUnprocessableEntity, "validation_failed")
	for _, key := range []string{"dataset", "label", "description"} {
		if _, ok := ae.Fields[key]; !ok {
			t.Fatalf("expected field error for %s, got %v", key, ae.Fields)
		}
	}

	_, _, err = svc.Upload(context.Background(), UploadInput{})
	requireAPIError(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestDatasetVisibility(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.datasetService(t)
	bg := context.Background()
	mine := testutil.SeedDataset(t, bg, f.db, 7, types.DatasetProcessed)
	testutil.SeedDataset(t, bg, f.db, 8, types.DatasetProcessed)

	rows, total, err := svc.List(asUser(7, "vendor"), "", repos.Page{})
	if err != nil {
		t.Fatalf("List (vendor): %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != mine.ID {
		t.Fatalf("vendor should only see own datasets: total=%d", total)
	}
	_, total, err = svc.List(asUser(1, "analyst"), "", repos.Page{})
	if err != nil {
		t.Fatalf("List (analyst): %v", err)
	}
	if total != 2 {
		t.Fatalf("analyst should see all datasets, got %d", total)
	}
	if _, _, err := svc.List(asUser(1, "analyst"), "bogus", repos.Page{}); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}

	if _, err := svc.Get(asUser(8, "vendor"), mine.ID); err == nil {
		t.Fatalf("expected other vendor to be forbidden")
	} else {
		requireAPIError(t, err, http.StatusForbidden, "forbidden")
	}
	detail, err := svc.Get(asUser(7, "vendor"), mine.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Dataset.ID != mine.ID {
		t.Fatalf("unexpected dataset %d", detail.Dataset.ID)
	}
	_, err = svc.Get(asUser(1, "admin"), 9999)
	requireAPIError(t, err, http.StatusNotFound, "dataset_not_found")
}

func TestDatasetDelete(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.datasetService(t)
	ctx := asUser(7, "vendor")

	ds, _, err := svc.Upload(ctx, UploadInput{
		OriginalName: "q1.csv",
		Size:         int64(len(sampleCSV)),
		Body:         strings.NewReader(sampleCSV),
		Label:        "Q1",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	err = svc.Delete(asUser(8, "analyst"), ds.ID)
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	if err := svc.Delete(ctx, ds.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(ds.FilePath); !os.IsNotExist(err) {
		t.Fatalf("expected stored file removed, stat err=%v", err)
	}
	_, err = svc.Get(ctx, ds.ID)
	requireAPIError(t, err, http.StatusNotFound, "dataset_not_found")
	if n := f.auditCount(t, types.AuditDatasetDelete); n != 1 {
		t.Fatalf("expected one dataset_delete audit row, got %d", n)
	}
}

func TestDatasetReprocess(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.datasetService(t)
	bg := context.Background()
	ctx := asUser(7, "vendor")

	busy := testutil.SeedDataset(t, bg, f.db, 7, types.DatasetProcessing)
	_, err := svc.Reprocess(ctx, busy.ID)
	requireAPIError(t, err, http.StatusConflict, "dataset_not_failed")

	ds := testutil.SeedDataset(t, bg, f.db, 7, types.DatasetFailed)
	prior := testutil.SeedJobLog(t, bg, f.db, ds.ID, types.JobFailed)

	job, err := svc.Reprocess(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if job.JobReference == prior.JobReference {
		t.Fatalf("expected a fresh job reference")
	}
	if job.Status != types.JobRetrying || job.RetryCount != 1 {
		t.Fatalf("unexpected job: status=%s retry_count=%d", job.Status, job.RetryCount)
	}
	if got := f.reloadJob(t, prior.JobReference); got.Status != types.JobFailed {
		t.Fatalf("prior entry must stay failed, got %s", got.Status)
	}
	if got := f.reloadDataset(t, ds.ID); got.Status != types.DatasetProcessing {
		t.Fatalf("expected processing, got %s", got.Status)
	}
	if n := f.auditCount(t, types.AuditDatasetReprocess); n != 1 {
		t.Fatalf("expected one dataset_reprocess audit row, got %d", n)
	}
}
