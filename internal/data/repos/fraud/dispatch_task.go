package fraud

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type DispatchTaskRepo interface {
	Create(dbc dbctx.Context, task *types.DispatchTask) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DispatchTask, error)
	ListByJobReference(dbc dbctx.Context, ref string) ([]*types.DispatchTask, error)
	// ClaimNext locks the oldest due task and marks it running. A running task whose
	// lock is older than staleRunning is considered abandoned and reclaimed.
	ClaimNext(dbc dbctx.Context, staleRunning time.Duration) (*types.DispatchTask, error)
	MarkDelivered(dbc dbctx.Context, id uuid.UUID) (bool, error)
	Reschedule(dbc dbctx.Context, id uuid.UUID, nextAttemptAt time.Time, lastError string) (bool, error)
	MarkFailed(dbc dbctx.Context, id uuid.UUID, lastError string) (bool, error)
}

type dispatchTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDispatchTaskRepo(db *gorm.DB, baseLog *logger.Logger) DispatchTaskRepo {
	return &dispatchTaskRepo{
		db:  db,
		log: baseLog.With("repo", "DispatchTaskRepo"),
	}
}

func (r *dispatchTaskRepo) Create(dbc dbctx.Context, task *types.DispatchTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = types.TaskQueued
	}
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = time.Now()
	}
	return dbc.DB(r.db).Create(task).Error
}

func (r *dispatchTaskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DispatchTask, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var task types.DispatchTask
	err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == uuid.Nil {
		return nil, nil
	}
	return &task, nil
}

func (r *dispatchTaskRepo) ListByJobReference(dbc dbctx.Context, ref string) ([]*types.DispatchTask, error) {
	var out []*types.DispatchTask
	if ref == "" {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("job_reference = ?", ref).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dispatchTaskRepo) ClaimNext(dbc dbctx.Context, staleRunning time.Duration) (*types.DispatchTask, error) {
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.DispatchTask
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var task types.DispatchTask
		q := txx
		if txx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		qErr := q.Where(`
        (
          (status = ? AND next_attempt_at <= ?)
          OR (
            status = ?
            AND locked_at IS NOT NULL
            AND locked_at < ?
          )
        )
      `, types.TaskQueued, now, types.TaskRunning, staleCutoff).
			Order("next_attempt_at ASC").
			First(&task).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.DispatchTask{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"status":     types.TaskRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		task.Status = types.TaskRunning
		task.Attempts++
		task.LockedAt = &now
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *dispatchTaskRepo) MarkDelivered(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return r.updateRunning(dbc, id, map[string]interface{}{
		"status":     types.TaskDelivered,
		"last_error": "",
		"locked_at":  nil,
	})
}

func (r *dispatchTaskRepo) Reschedule(dbc dbctx.Context, id uuid.UUID, nextAttemptAt time.Time, lastError string) (bool, error) {
	return r.updateRunning(dbc, id, map[string]interface{}{
		"status":          types.TaskQueued,
		"next_attempt_at": nextAttemptAt,
		"last_error":      lastError,
		"locked_at":       nil,
	})
}

func (r *dispatchTaskRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, lastError string) (bool, error) {
	return r.updateRunning(dbc, id, map[string]interface{}{
		"status":     types.TaskFailed,
		"last_error": lastError,
		"locked_at":  nil,
	})
}

func (r *dispatchTaskRepo) updateRunning(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	updates["updated_at"] = time.Now()
	res := dbc.DB(r.db).
		Model(&types.DispatchTask{}).
		Where("id = ? AND status = ?", id, types.TaskRunning).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
