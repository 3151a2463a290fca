package mlclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

func TestProcessDatasetSendsSecretAndPayload(t *testing.T) {
	var got ProcessDatasetRequest
	var secret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-dataset" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		secret = r.Header.Get(SecretHeader)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{BaseURL: srv.URL + "/", Secret: "s3cret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := ProcessDatasetRequest{DatasetID: 4, DatasetPath: "/data/a.csv", JobID: "J1", CallbackURL: "http://app/api/internal/ml-results"}
	if err := c.ProcessDataset(context.Background(), req); err != nil {
		t.Fatalf("ProcessDataset: %v", err)
	}
	if secret != "s3cret" {
		t.Fatalf("secret header = %q", secret)
	}
	if got != req {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestPostReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{BaseURL: srv.URL})
	err := c.RequestExplanations(context.Background(), ExplainRequest{DatasetID: 1, JobID: "J"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Path != "/explain" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","model_loaded":true}`))
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{BaseURL: srv.URL})
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.StatusCode != http.StatusOK || len(h.Body) == 0 {
		t.Fatalf("unexpected health: %+v", h)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without base url")
	}
}

func TestStatusErrorBodyStaysValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("a", 499) + "ééé"))
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{BaseURL: srv.URL})
	err := c.ProcessDataset(context.Background(), ProcessDatasetRequest{DatasetID: 1, JobID: "J"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !utf8.ValidString(se.Body) || len(se.Body) != 499 {
		t.Fatalf("body cut mid-rune: valid=%v len=%d", utf8.ValidString(se.Body), len(se.Body))
	}
	if !utf8.ValidString(se.Error()) {
		t.Fatalf("error text is not valid utf8")
	}
}
