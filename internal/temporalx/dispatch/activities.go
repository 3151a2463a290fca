package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type Activities struct {
	Log  *logger.Logger
	Exec services.DispatchExecutor
}

func (a *Activities) Begin(ctx context.Context, jobRef string) (*services.ProcessTarget, error) {
	target, err := a.Exec.BeginProcess(ctx, jobRef)
	if errors.Is(err, services.ErrJobNotFound) || errors.Is(err, services.ErrDatasetGone) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "dispatch_target_missing", err)
	}
	return target, err
}

// Deliver makes a single attempt. The workflow owns retry spacing.
func (a *Activities) Deliver(ctx context.Context, target services.ProcessTarget) error {
	if err := a.Exec.DeliverProcess(ctx, target); err != nil {
		if a.Log != nil {
			a.Log.Warn("ML dispatch attempt failed", "job_id", target.JobReference, "dataset_id", target.DatasetID, "error", err)
		}
		return fmt.Errorf("deliver: %w", err)
	}
	return nil
}

func (a *Activities) Fail(ctx context.Context, in FailInput) error {
	return a.Exec.FailProcess(ctx, in.DatasetID, in.JobReference, in.Cause)
}
