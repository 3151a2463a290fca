package dataset_process

import (
	"context"
	"time"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

// WorkflowStarter hands delivery to a durable workflow engine instead of
// calling the ML service inline.
type WorkflowStarter interface {
	StartDispatch(ctx context.Context, jobRef string, datasetID uint, deadline *time.Time) error
}

type Pipeline struct {
	log     *logger.Logger
	exec    services.DispatchExecutor
	starter WorkflowStarter
}

// New builds the dataset.process handler. starter may be nil.
func New(baseLog *logger.Logger, exec services.DispatchExecutor, starter WorkflowStarter) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", types.TaskTypeDatasetProcess),
		exec:    exec,
		starter: starter,
	}
}

func (p *Pipeline) Type() string { return types.TaskTypeDatasetProcess }
