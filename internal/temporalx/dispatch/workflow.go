package dispatch

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/fraudguard-backend/internal/services"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = time.Minute
)

// Workflow delivers a dataset to the ML worker with linear backoff and marks
// the job failed once the attempt budget or the deadline is spent.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	maxAttempts := in.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := in.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	bookkeeping := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})
	delivery := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var target *services.ProcessTarget
	if err := workflow.ExecuteActivity(bookkeeping, ActivityBegin, in.JobReference).Get(ctx, &target); err != nil {
		cause := causeOf(err)
		_ = workflow.ExecuteActivity(bookkeeping, ActivityFail, FailInput{
			DatasetID:    in.DatasetID,
			JobReference: in.JobReference,
			Cause:        "begin: " + cause,
		}).Get(ctx, nil)
		return Result{Outcome: OutcomeFailed, Error: cause}, nil
	}
	if target == nil {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	var (
		lastErr  string
		attempts int
	)
	for attempts < maxAttempts {
		attempts++
		err := workflow.ExecuteActivity(delivery, ActivityDeliver, *target).Get(ctx, nil)
		if err == nil {
			return Result{Outcome: OutcomeDelivered, Attempts: attempts}, nil
		}
		lastErr = causeOf(err)
		workflow.GetLogger(ctx).Warn("dispatch attempt failed", "job_id", in.JobReference, "attempt", attempts, "error", lastErr)
		if attempts >= maxAttempts {
			break
		}
		wait := time.Duration(attempts) * backoff
		if !in.Deadline.IsZero() && workflow.Now(ctx).Add(wait).After(in.Deadline) {
			workflow.GetLogger(ctx).Warn("dispatch deadline reached", "job_id", in.JobReference, "deadline", in.Deadline)
			break
		}
		if err := workflow.Sleep(ctx, wait); err != nil {
			return Result{}, err
		}
	}

	if err := workflow.ExecuteActivity(bookkeeping, ActivityFail, FailInput{
		DatasetID:    target.DatasetID,
		JobReference: target.JobReference,
		Cause:        lastErr,
	}).Get(ctx, nil); err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomeFailed, Attempts: attempts, Error: lastErr}, nil
}

func causeOf(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
