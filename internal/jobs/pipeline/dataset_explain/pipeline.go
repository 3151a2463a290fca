package dataset_explain

import (
	"fmt"

	jobrt "github.com/yungbote/fraudguard-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Task == nil {
		return nil
	}
	if p.exec == nil {
		return jobrt.Permanent(fmt.Errorf("missing dispatch executor"))
	}
	return p.exec.DeliverExplain(jc.Ctx, jc.Task.DatasetID, jc.Task.JobReference)
}

// OnFailure only audits: explanations are optional and never fail the dataset.
func (p *Pipeline) OnFailure(jc *jobrt.Context, cause error) {
	if jc == nil || jc.Task == nil || p.exec == nil {
		return
	}
	msg := "explanation request failed"
	if cause != nil {
		msg = cause.Error()
	}
	p.exec.FailExplain(jc.Ctx, jc.Task.DatasetID, jc.Task.JobReference, msg)
}
