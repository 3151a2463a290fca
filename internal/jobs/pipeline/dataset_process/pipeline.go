package dataset_process

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/fraudguard-backend/internal/jobs/runtime"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Task == nil {
		return nil
	}
	if p.exec == nil {
		return jobrt.Permanent(fmt.Errorf("missing dispatch executor"))
	}
	ref := jc.Task.JobReference

	if p.starter != nil {
		if err := p.starter.StartDispatch(jc.Ctx, ref, jc.Task.DatasetID, jc.Task.Deadline); err != nil {
			return fmt.Errorf("start workflow: %w", err)
		}
		p.log.Info("dispatch handed to workflow", "job_id", ref, "dataset_id", jc.Task.DatasetID)
		return nil
	}

	target, err := p.exec.BeginProcess(jc.Ctx, ref)
	if errors.Is(err, services.ErrJobNotFound) || errors.Is(err, services.ErrDatasetGone) {
		return jobrt.Permanent(err)
	}
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := p.exec.DeliverProcess(jc.Ctx, *target); err != nil {
		return err
	}
	p.log.Info("dataset delivered to ML service", "job_id", ref, "dataset_id", target.DatasetID)
	return nil
}

// OnFailure runs once the task is out of attempts: the job entry and its
// dataset are marked failed.
func (p *Pipeline) OnFailure(jc *jobrt.Context, cause error) {
	if jc == nil || jc.Task == nil || p.exec == nil {
		return
	}
	msg := "dispatch failed"
	if cause != nil {
		msg = cause.Error()
	}
	if err := p.exec.FailProcess(jc.Ctx, jc.Task.DatasetID, jc.Task.JobReference, msg); err != nil {
		p.log.Error("failed to record dispatch failure", "job_id", jc.Task.JobReference, "error", err)
	}
}
