package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/jobs/runtime"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	Backoff      time.Duration
	// StaleRunning reclaims tasks whose relay died mid-delivery.
	StaleRunning time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Minute
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 15 * time.Minute
	}
	return c
}

// Worker is the dispatch relay: it drains the dispatch_tasks outbox and hands
// each task to the handler registered for its type.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.DispatchTaskRepo
	registry *runtime.Registry
	cfg      Config
	wake     chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.DispatchTaskRepo, registry *runtime.Registry, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "DispatchRelay"),
		repo:     repo,
		registry: registry,
		cfg:      cfg.withDefaults(),
		wake:     make(chan struct{}, 1),
	}
}

// Wake nudges an idle loop so freshly committed tasks go out without waiting
// for the next poll.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting dispatch relay", "concurrency", w.cfg.Concurrency, "poll_interval", w.cfg.PollInterval)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop started by Start has returned.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Relay loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
		case <-w.wake:
		}
		for {
			if ctx.Err() != nil {
				return
			}
			ran, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Warn("ClaimNext failed", "worker_id", workerID, "error", err)
				break
			}
			if !ran {
				break
			}
		}
	}
}

// RunOnce claims and runs at most one due task. It reports whether a task was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.repo.ClaimNext(dbctx.Context{Ctx: ctx}, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	jc := runtime.NewContext(ctx, w.db, task, w.repo, w.cfg.Backoff)
	kv := []interface{}{"task_id", task.ID, "task_type", task.TaskType, "job_id", task.JobReference, "attempt", task.Attempts}
	log := w.log.With(append(kv, ctxutil.GetTraceData(jc.Ctx).KV()...)...)
	if perr := jc.PayloadErr(); perr != nil {
		log.Warn("Task payload could not be decoded; running with empty payload", "error", perr)
	}

	h, ok := w.registry.Get(task.TaskType)
	if !ok {
		log.Warn("No handler registered for task_type")
		if _, uErr := jc.Fail("dispatch", runtime.Permanent(&missingHandlerError{TaskType: task.TaskType})); uErr != nil {
			log.Warn("Failed to settle task", "error", uErr)
		}
		return true, nil
	}

	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Task handler panic", "panic", r)
				err = errFromRecover(r)
			}
		}()
		return h.Run(jc)
	}()

	if runErr == nil {
		if uErr := jc.Succeed(); uErr != nil {
			log.Warn("Failed to mark task delivered", "error", uErr)
		}
		return true, nil
	}

	final, uErr := jc.Fail("run", runErr)
	if uErr != nil {
		log.Warn("Failed to settle task", "error", uErr)
	}
	if !final {
		log.Warn("Task delivery failed; rescheduled", "error", runErr, "next_attempt_at", task.NextAttemptAt)
		return true, nil
	}
	log.Error("Task delivery failed permanently", "error", runErr)
	if fh, ok := h.(runtime.FailureHandler); ok {
		fh.OnFailure(jc, runErr)
	}
	return true, nil
}

type missingHandlerError struct{ TaskType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for task_type=" + e.TaskType
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
