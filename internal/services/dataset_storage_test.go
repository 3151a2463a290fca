package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
)

func TestDatasetKeyLayout(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	key := datasetKey(now, "Q1 Batch.CSV")
	if !strings.HasPrefix(key, "datasets/2026/03/") || !strings.HasSuffix(key, ".csv") {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestLocalDatasetStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := NewLocalDatasetStorage(testutil.Logger(t), dir)
	if err != nil {
		t.Fatalf("NewLocalDatasetStorage: %v", err)
	}
	ctx := context.Background()

	sf, err := st.Store(ctx, "tx.csv", strings.NewReader("transaction_id,amount\nT1,10\n"), "text/csv")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if sf.Size != 28 {
		t.Fatalf("expected 28 bytes, got %d", sf.Size)
	}
	if !filepath.IsAbs(sf.Location) {
		t.Fatalf("expected absolute location, got %q", sf.Location)
	}
	if _, err := os.Stat(sf.Location); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	if err := st.Delete(ctx, sf.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(sf.Location); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := st.Delete(ctx, sf.Key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if err := st.Delete(ctx, "../escape.csv"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
