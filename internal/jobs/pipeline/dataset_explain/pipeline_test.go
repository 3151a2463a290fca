package dataset_explain

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/fraudguard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	jobrt "github.com/yungbote/fraudguard-backend/internal/jobs/runtime"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type stubExecutor struct {
	explainErr error
	explained  []uint
	failed     []string
}

func (s *stubExecutor) BeginProcess(ctx context.Context, jobRef string) (*services.ProcessTarget, error) {
	return nil, nil
}

func (s *stubExecutor) DeliverProcess(ctx context.Context, target services.ProcessTarget) error {
	return nil
}

func (s *stubExecutor) FailProcess(ctx context.Context, datasetID uint, jobRef string, cause string) error {
	return nil
}

func (s *stubExecutor) DeliverExplain(ctx context.Context, datasetID uint, jobRef string) error {
	s.explained = append(s.explained, datasetID)
	return s.explainErr
}

func (s *stubExecutor) FailExplain(ctx context.Context, datasetID uint, jobRef string, cause string) {
	s.failed = append(s.failed, cause)
}

func taskContext() *jobrt.Context {
	return jobrt.NewContext(context.Background(), nil, &types.DispatchTask{
		JobReference: "ref-9",
		TaskType:     types.TaskTypeDatasetExplain,
		DatasetID:    9,
		MaxAttempts:  3,
	}, nil, 0)
}

func TestRunRequestsExplanations(t *testing.T) {
	exec := &stubExecutor{}
	p := New(testutil.Logger(t), exec)
	if err := p.Run(taskContext()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exec.explained) != 1 || exec.explained[0] != 9 {
		t.Fatalf("explained: %v", exec.explained)
	}
}

func TestRunPropagatesDeliveryError(t *testing.T) {
	exec := &stubExecutor{explainErr: errors.New("ml down")}
	p := New(testutil.Logger(t), exec)
	err := p.Run(taskContext())
	if err == nil || jobrt.IsPermanent(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestOnFailureRecordsCause(t *testing.T) {
	exec := &stubExecutor{}
	p := New(testutil.Logger(t), exec)
	p.OnFailure(taskContext(), errors.New("ml down"))
	p.OnFailure(taskContext(), nil)
	if len(exec.failed) != 2 || exec.failed[0] != "ml down" || exec.failed[1] != "explanation request failed" {
		t.Fatalf("failed: %v", exec.failed)
	}
}
