package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"ml_secret", "hunter2",
		"Authorization", "Bearer abc",
		"dataset_id", 42,
	})
	if len(out) != 6 {
		t.Fatalf("unexpected length: %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("ml_secret not redacted: %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("authorization not redacted: %v", out[3])
	}
	if out[5] != 42 {
		t.Fatalf("dataset_id should pass through, got %v", out[5])
	}
}

func TestSanitizeKVsHashesUserIdentifiers(t *testing.T) {
	out := sanitizeKVs([]interface{}{"uploaded_by", 7, "triggered_by", 7})
	first, ok := out[1].(string)
	if !ok || len(first) != len("hash:")+12 {
		t.Fatalf("expected hashed value, got %v", out[1])
	}
	if out[1] != out[3] {
		t.Fatalf("same input should hash the same: %v vs %v", out[1], out[3])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"job_id", "abc", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}
