package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/fraudguard-backend/internal/services"
)

type stubExec struct {
	mu          sync.Mutex
	target      *services.ProcessTarget
	beginErr    error
	deliverErrs []error
	delivered   int
	failures    []string
}

func (s *stubExec) BeginProcess(ctx context.Context, jobRef string) (*services.ProcessTarget, error) {
	return s.target, s.beginErr
}

func (s *stubExec) DeliverProcess(ctx context.Context, target services.ProcessTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered++
	if len(s.deliverErrs) > 0 {
		err := s.deliverErrs[0]
		s.deliverErrs = s.deliverErrs[1:]
		return err
	}
	return nil
}

func (s *stubExec) FailProcess(ctx context.Context, datasetID uint, jobRef string, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, cause)
	return nil
}

func (s *stubExec) DeliverExplain(ctx context.Context, datasetID uint, jobRef string) error {
	return nil
}

func (s *stubExec) FailExplain(ctx context.Context, datasetID uint, jobRef string, cause string) {}

func run(t *testing.T, exec *stubExec, in Input) Result {
	t.Helper()
	return runAt(t, exec, in, time.Time{})
}

func runAt(t *testing.T, exec *stubExec, in Input, start time.Time) Result {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	if !start.IsZero() {
		env.SetStartTime(start)
	}
	acts := &Activities{Exec: exec}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Begin, activity.RegisterOptions{Name: ActivityBegin})
	env.RegisterActivityWithOptions(acts.Deliver, activity.RegisterOptions{Name: ActivityDeliver})
	env.RegisterActivityWithOptions(acts.Fail, activity.RegisterOptions{Name: ActivityFail})

	env.ExecuteWorkflow(WorkflowName, in)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res Result
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatalf("result: %v", err)
	}
	return res
}

func target() *services.ProcessTarget {
	return &services.ProcessTarget{DatasetID: 4, JobReference: "job-1", DatasetPath: "/data/a.csv"}
}

func TestWorkflowDeliversFirstAttempt(t *testing.T) {
	exec := &stubExec{target: target()}
	res := run(t, exec, Input{JobReference: "job-1", DatasetID: 4, MaxAttempts: 3, Backoff: time.Minute})
	if res.Outcome != OutcomeDelivered || res.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if exec.delivered != 1 || len(exec.failures) != 0 {
		t.Fatalf("delivered=%d failures=%v", exec.delivered, exec.failures)
	}
}

func TestWorkflowRetriesThenDelivers(t *testing.T) {
	exec := &stubExec{target: target(), deliverErrs: []error{errors.New("ml down")}}
	res := run(t, exec, Input{JobReference: "job-1", DatasetID: 4, MaxAttempts: 3, Backoff: time.Minute})
	if res.Outcome != OutcomeDelivered || res.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestWorkflowExhaustsAttempts(t *testing.T) {
	exec := &stubExec{target: target(), deliverErrs: []error{
		errors.New("ml down"), errors.New("ml down"), errors.New("ml still down"),
	}}
	res := run(t, exec, Input{JobReference: "job-1", DatasetID: 4, MaxAttempts: 3, Backoff: time.Minute})
	if res.Outcome != OutcomeFailed || res.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if exec.delivered != 3 {
		t.Fatalf("expected 3 delivery attempts, got %d", exec.delivered)
	}
	if len(exec.failures) != 1 || !strings.Contains(exec.failures[0], "ml still down") {
		t.Fatalf("failures: %v", exec.failures)
	}
}

func TestWorkflowSkipsTerminalJob(t *testing.T) {
	exec := &stubExec{}
	res := run(t, exec, Input{JobReference: "job-1", DatasetID: 4})
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("unexpected result: %+v", res)
	}
	if exec.delivered != 0 {
		t.Fatalf("should not deliver")
	}
}

func TestWorkflowMissingJobFails(t *testing.T) {
	exec := &stubExec{beginErr: services.ErrJobNotFound}
	res := run(t, exec, Input{JobReference: "job-1", DatasetID: 4})
	if res.Outcome != OutcomeFailed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(exec.failures) != 1 || !strings.HasPrefix(exec.failures[0], "begin: ") {
		t.Fatalf("failures: %v", exec.failures)
	}
}

func TestWorkflowStopsAtDeadline(t *testing.T) {
	exec := &stubExec{target: target(), deliverErrs: []error{
		errors.New("ml down"), errors.New("ml down"), errors.New("ml down"), errors.New("ml down"),
	}}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// 1m after attempt 1 fits in 90s; the 2m wait after attempt 2 does not.
	res := runAt(t, exec, Input{
		JobReference: "job-1",
		DatasetID:    4,
		MaxAttempts:  5,
		Backoff:      time.Minute,
		Deadline:     start.Add(90 * time.Second),
	}, start)
	if res.Outcome != OutcomeFailed || res.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if exec.delivered != 2 || len(exec.failures) != 1 {
		t.Fatalf("delivered=%d failures=%v", exec.delivered, exec.failures)
	}
}

func TestStarterOptionsFollowDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStarter(nil, "fraudguard-dispatch", 3, time.Minute, 10*time.Minute)

	taskDeadline := now.Add(4 * time.Minute)
	if got := s.deadline(&taskDeadline, now); !got.Equal(taskDeadline) {
		t.Fatalf("task deadline should win, got %v", got)
	}
	if got := s.deadline(nil, now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("budget fallback, got %v", got)
	}

	opts := s.options("job-1", taskDeadline, now)
	if opts.ID != "job-1" || opts.WorkflowExecutionTimeout != 4*time.Minute+failGrace {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if unbounded := NewStarter(nil, "q", 3, time.Minute, 0); !unbounded.deadline(nil, now).IsZero() {
		t.Fatalf("zero budget should leave the workflow unbounded")
	}
	if opts := s.options("job-2", time.Time{}, now); opts.WorkflowExecutionTimeout != 0 {
		t.Fatalf("no deadline should set no timeout, got %v", opts.WorkflowExecutionTimeout)
	}
}
