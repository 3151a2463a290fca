package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FG_TEST_INT", "nope")
	if got := Int("FG_TEST_INT", 3); got != 3 {
		t.Fatalf("got %d want 3", got)
	}
	t.Setenv("FG_TEST_INT", " 12 ")
	if got := Int("FG_TEST_INT", 3); got != 12 {
		t.Fatalf("got %d want 12", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("FG_TEST_BOOL", "off")
	if Bool("FG_TEST_BOOL", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("FG_TEST_BOOL", "maybe")
	if !Bool("FG_TEST_BOOL", true) {
		t.Fatalf("expected default true")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("FG_TEST_SECONDS", "90")
	if got := Seconds("FG_TEST_SECONDS", 1); got != 90*time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestFloatAndList(t *testing.T) {
	t.Setenv("FG_TEST_FLOAT", "0.25")
	if got := Float("FG_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("got %v", got)
	}
	t.Setenv("FG_TEST_FLOAT", "x")
	if got := Float("FG_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("garbage should fall back, got %v", got)
	}
	t.Setenv("FG_TEST_LIST", " a, ,b ,")
	got := List("FG_TEST_LIST")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("list: %q", got)
	}
}
