package dataset_explain

import (
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type Pipeline struct {
	log  *logger.Logger
	exec services.DispatchExecutor
}

func New(baseLog *logger.Logger, exec services.DispatchExecutor) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", types.TaskTypeDatasetExplain),
		exec: exec,
	}
}

func (p *Pipeline) Type() string { return types.TaskTypeDatasetExplain }
