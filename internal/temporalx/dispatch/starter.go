package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Starter hands dataset.process tasks to Temporal instead of the DB relay.
type Starter struct {
	c           client.Client
	taskQueue   string
	maxAttempts int
	backoff     time.Duration
	budget      time.Duration
}

// failGrace leaves room after the deadline for the Fail bookkeeping activity.
const failGrace = 5 * time.Minute

// NewStarter builds a starter. budget applies when a task carries no deadline
// of its own.
func NewStarter(c client.Client, taskQueue string, maxAttempts int, backoff, budget time.Duration) *Starter {
	return &Starter{c: c, taskQueue: taskQueue, maxAttempts: maxAttempts, backoff: backoff, budget: budget}
}

// options derives the start options for one dispatch. The workflow execution
// timeout backs up the in-workflow deadline check.
func (s *Starter) options(jobRef string, deadline time.Time, now time.Time) client.StartWorkflowOptions {
	opts := client.StartWorkflowOptions{
		ID:                    jobRef,
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	if !deadline.IsZero() {
		remaining := deadline.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		opts.WorkflowExecutionTimeout = remaining + failGrace
	}
	return opts
}

func (s *Starter) deadline(taskDeadline *time.Time, now time.Time) time.Time {
	if taskDeadline != nil && !taskDeadline.IsZero() {
		return *taskDeadline
	}
	if s.budget > 0 {
		return now.Add(s.budget)
	}
	return time.Time{}
}

// StartDispatch is idempotent per job reference; a redelivered task that
// finds its workflow already started succeeds.
func (s *Starter) StartDispatch(ctx context.Context, jobRef string, datasetID uint, taskDeadline *time.Time) error {
	if s == nil || s.c == nil {
		return fmt.Errorf("temporal client is not configured")
	}
	now := time.Now()
	deadline := s.deadline(taskDeadline, now)
	_, err := s.c.ExecuteWorkflow(ctx, s.options(jobRef, deadline, now), WorkflowName, Input{
		JobReference: jobRef,
		DatasetID:    datasetID,
		MaxAttempts:  s.maxAttempts,
		Backoff:      s.backoff,
		Deadline:     deadline,
	})
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}
	return err
}
