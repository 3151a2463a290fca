package temporalworker

import (
	"testing"
	"time"

	"github.com/yungbote/fraudguard-backend/internal/temporalx"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := clampBackoff(250*time.Millisecond, 2*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %v want %v", tc.attempt, got, tc.want)
		}
	}
	if got := clampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("zero base should default, got %v", got)
	}
}

func TestNewRunnerRequiresClient(t *testing.T) {
	if _, err := NewRunner(nil, nil, temporalx.Config{}, nil); err == nil {
		t.Fatalf("expected error without client")
	}
}
