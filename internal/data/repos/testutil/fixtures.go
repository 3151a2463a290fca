package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

func SeedDataset(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uint, status types.DatasetStatus) *types.Dataset {
	tb.Helper()
	ds := &types.Dataset{
		Filename:     "seed.csv",
		OriginalName: "seed.csv",
		FilePath:     "datasets/seed.csv",
		FileSize:     128,
		Label:        "seed",
		Status:       status,
		UploadedBy:   ownerID,
	}
	if err := tx.WithContext(ctx).Create(ds).Error; err != nil {
		tb.Fatalf("seed dataset: %v", err)
	}
	return ds
}

func SeedJobLog(tb testing.TB, ctx context.Context, tx *gorm.DB, datasetID uint, status types.JobStatus) *types.JobLog {
	tb.Helper()
	job := &types.JobLog{
		JobReference: uuid.NewString(),
		DatasetID:    datasetID,
		Status:       status,
	}
	if status.Terminal() {
		now := time.Now()
		job.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(job).Error; err != nil {
		tb.Fatalf("seed job log: %v", err)
	}
	return job
}

func SeedResult(tb testing.TB, ctx context.Context, tx *gorm.DB, datasetID uint, txID string, score float64, isFraud bool) *types.FraudResult {
	tb.Helper()
	row := &types.FraudResult{
		DatasetID:     datasetID,
		TransactionID: txID,
		FraudScore:    score,
		IsFraud:       isFraud,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed result: %v", err)
	}
	return row
}

func PtrString(s string) *string { return &s }

func PtrFloat(f float64) *float64 { return &f }

func PtrUint(u uint) *uint { return &u }
