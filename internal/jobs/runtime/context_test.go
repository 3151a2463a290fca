package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
)

func claimTask(t *testing.T, repo repos.DispatchTaskRepo, task *types.DispatchTask) *types.DispatchTask {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	if err := repo.Create(dbc, task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	claimed, err := repo.ClaimNext(dbc, time.Hour)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimNext: %+v, %v", claimed, err)
	}
	return claimed
}

func TestFailReschedulesWithLinearBackoff(t *testing.T) {
	db := testutil.DB(t)
	repo := repos.NewDispatchTaskRepo(db, testutil.Logger(t))
	task := claimTask(t, repo, &types.DispatchTask{
		JobReference: "ref-1",
		TaskType:     types.TaskTypeDatasetProcess,
		DatasetID:    1,
		MaxAttempts:  3,
	})

	jc := NewContext(context.Background(), db, task, repo, time.Minute)
	before := time.Now()
	final, err := jc.Fail("run", errors.New("connection refused"))
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if final {
		t.Fatalf("first failure should be retried")
	}
	stored, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != types.TaskQueued || stored.LastError != "run: connection refused" {
		t.Fatalf("unexpected rescheduled task: status=%s last_error=%q", stored.Status, stored.LastError)
	}
	if stored.NextAttemptAt.Before(before.Add(time.Minute - time.Second)) {
		t.Fatalf("expected next attempt about a minute out, got %s", stored.NextAttemptAt.Sub(before))
	}
	if !jc.Settled() {
		t.Fatalf("context should be settled after Fail")
	}
}

func TestFailFinalCases(t *testing.T) {
	db := testutil.DB(t)
	repo := repos.NewDispatchTaskRepo(db, testutil.Logger(t))
	ctx := context.Background()

	exhausted := claimTask(t, repo, &types.DispatchTask{
		JobReference: "ref-exhausted",
		TaskType:     types.TaskTypeDatasetProcess,
		DatasetID:    1,
		MaxAttempts:  1,
	})
	if final, _ := NewContext(ctx, db, exhausted, repo, time.Minute).Fail("run", errors.New("boom")); !final {
		t.Fatalf("expected final failure once attempts are exhausted")
	}

	deadline := time.Now().Add(10 * time.Second)
	late := claimTask(t, repo, &types.DispatchTask{
		JobReference: "ref-late",
		TaskType:     types.TaskTypeDatasetProcess,
		DatasetID:    2,
		MaxAttempts:  5,
		Deadline:     &deadline,
	})
	if final, _ := NewContext(ctx, db, late, repo, time.Minute).Fail("run", errors.New("boom")); !final {
		t.Fatalf("expected final failure when the retry would miss the deadline")
	}

	perm := claimTask(t, repo, &types.DispatchTask{
		JobReference: "ref-perm",
		TaskType:     types.TaskTypeDatasetProcess,
		DatasetID:    3,
		MaxAttempts:  5,
	})
	if final, _ := NewContext(ctx, db, perm, repo, time.Minute).Fail("run", Permanent(errors.New("gone"))); !final {
		t.Fatalf("expected permanent error to be final")
	}

	stored, err := repo.GetByID(dbctx.Context{Ctx: ctx}, perm.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != types.TaskFailed {
		t.Fatalf("expected failed task, got %s", stored.Status)
	}
}

func TestContextPayloadAndTrace(t *testing.T) {
	task := &types.DispatchTask{
		Payload: []byte(`{"dataset_path":"/data/q1.csv","trace_id":"trace-1","request_id":"req-1"}`),
	}
	jc := NewContext(context.Background(), nil, task, nil, time.Second)
	if jc.PayloadString("dataset_path") != "/data/q1.csv" {
		t.Fatalf("unexpected payload: %v", jc.Payload())
	}
	if jc.PayloadString("missing") != "" {
		t.Fatalf("missing keys should read as empty")
	}
	td := ctxutil.GetTraceData(jc.Ctx)
	if td == nil || td.TraceID != "trace-1" || td.RequestID != "req-1" {
		t.Fatalf("trace data not restored: %+v", td)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	h := handlerFunc{typ: "x"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(h); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := r.Register(handlerFunc{}); err == nil {
		t.Fatalf("expected empty type to fail")
	}
	if _, ok := r.Get("x"); !ok {
		t.Fatalf("expected registered handler")
	}
}

type handlerFunc struct{ typ string }

func (h handlerFunc) Type() string           { return h.typ }
func (h handlerFunc) Run(ctx *Context) error { return nil }

func TestFailKeepsLastErrorValidUTF8(t *testing.T) {
	db := testutil.DB(t)
	repo := repos.NewDispatchTaskRepo(db, testutil.Logger(t))
	task := claimTask(t, repo, &types.DispatchTask{
		JobReference: "ref-utf8",
		TaskType:     types.TaskTypeDatasetProcess,
		DatasetID:    1,
		MaxAttempts:  3,
	})

	// "run: " plus 994 bytes puts the 1000-byte limit inside the first "é".
	cause := errors.New(strings.Repeat("a", 994) + "éééé")
	if _, err := NewContext(context.Background(), db, task, repo, time.Minute).Fail("run", cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	stored, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !utf8.ValidString(stored.LastError) || len(stored.LastError) != 999 {
		t.Fatalf("last_error cut mid-rune: valid=%v len=%d", utf8.ValidString(stored.LastError), len(stored.LastError))
	}
}

func TestStoredErrorDropsInvalidBytes(t *testing.T) {
	if got := storedError("bad \xc3 byte"); got != "bad  byte" {
		t.Fatalf("got %q", got)
	}
}

func TestContextReportsUndecodablePayload(t *testing.T) {
	task := &types.DispatchTask{Payload: []byte(`{not json`)}
	jc := NewContext(context.Background(), nil, task, nil, time.Second)
	if jc.PayloadErr() == nil {
		t.Fatalf("expected decode error")
	}
	if len(jc.Payload()) != 0 {
		t.Fatalf("payload should read as empty: %v", jc.Payload())
	}
}
