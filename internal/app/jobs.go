package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/jobs/pipeline/dataset_explain"
	"github.com/yungbote/fraudguard-backend/internal/jobs/pipeline/dataset_process"
	jobrt "github.com/yungbote/fraudguard-backend/internal/jobs/runtime"
	"github.com/yungbote/fraudguard-backend/internal/jobs/worker"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/temporalx/dispatch"
	"github.com/yungbote/fraudguard-backend/internal/temporalx/temporalworker"
)

// wireRelay builds the outbox relay. With the temporal backend, dataset.process
// tasks are handed to a workflow and the returned runner executes it.
func wireRelay(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, s Services, c Clients) (*worker.Worker, *temporalworker.Runner, error) {
	log.Info("Wiring dispatch relay...", "backend", cfg.Dispatch.Backend)

	var (
		starter dataset_process.WorkflowStarter
		runner  *temporalworker.Runner
	)
	if cfg.Dispatch.Backend == DispatchBackendTemporal {
		if c.Temporal == nil {
			return nil, nil, fmt.Errorf("temporal backend selected but no temporal client")
		}
		starter = dispatch.NewStarter(c.Temporal, cfg.Temporal.TaskQueue, cfg.Dispatch.MaxAttempts, cfg.Dispatch.Backoff, cfg.Dispatch.TaskTimeout)
		rn, err := temporalworker.NewRunner(log, c.Temporal, cfg.Temporal, s.Executor)
		if err != nil {
			return nil, nil, err
		}
		runner = rn
	}

	registry := jobrt.NewRegistry()
	if err := registry.Register(dataset_process.New(log, s.Executor, starter)); err != nil {
		return nil, nil, err
	}
	if err := registry.Register(dataset_explain.New(log, s.Executor)); err != nil {
		return nil, nil, err
	}

	relay := worker.NewWorker(db, log, r.DispatchTask, registry, worker.Config{
		Concurrency:  cfg.Dispatch.Concurrency,
		PollInterval: cfg.Dispatch.PollInterval,
		Backoff:      cfg.Dispatch.Backoff,
		StaleRunning: cfg.Dispatch.TaskTimeout,
	})
	s.Dispatcher.SetWaker(relay)
	return relay, runner, nil
}
