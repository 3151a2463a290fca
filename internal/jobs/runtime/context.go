package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
)

const maxStoredError = 1000

/*
Context is the execution handle for one claimed dispatch task.
It wraps:
	- the DB handle handlers may use,
	- the claimed outbox row,
	- the only sanctioned ways to settle it (Succeed / Fail).
Handlers never update dispatch_tasks directly.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Task    *types.DispatchTask
	Repo    repos.DispatchTaskRepo
	Backoff time.Duration

	settled    bool
	payload    map[string]any
	payloadErr error
}

func NewContext(ctx context.Context, db *gorm.DB, task *types.DispatchTask, repo repos.DispatchTaskRepo, backoff time.Duration) *Context {
	c := &Context{
		Ctx:     ctxutil.Default(ctx),
		DB:      db,
		Task:    task,
		Repo:    repo,
		Backoff: backoff,
	}
	c.payloadErr = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Task == nil || len(c.Task.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Task.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// PayloadErr reports a payload that could not be decoded. Payload then reads
// as empty.
func (c *Context) PayloadErr() error {
	return c.payloadErr
}

// storedError drops invalid UTF-8 and cuts msg on a rune boundary so it fits
// the last_error column.
func storedError(msg string) string {
	msg = strings.ToValidUTF8(msg, "")
	if len(msg) <= maxStoredError {
		return msg
	}
	cut := maxStoredError
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

// applyTraceData restores the trace ids of the request that enqueued the task.
func (c *Context) applyTraceData() {
	if td := ctxutil.TraceDataFromFields(c.PayloadString); td != nil {
		c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
	}
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) Settled() bool { return c != nil && c.settled }

// Succeed marks the task delivered.
func (c *Context) Succeed() error {
	if c == nil || c.Task == nil || c.settled {
		return nil
	}
	c.settled = true
	if c.Repo == nil {
		return nil
	}
	_, err := c.Repo.MarkDelivered(dbctx.Context{Ctx: c.Ctx}, c.Task.ID)
	if err == nil {
		c.Task.Status = types.TaskDelivered
	}
	return err
}

// NextAttemptAt is the linear backoff schedule: attempts * backoff from now.
func (c *Context) NextAttemptAt(now time.Time) time.Time {
	attempts := 1
	if c.Task != nil && c.Task.Attempts > 0 {
		attempts = c.Task.Attempts
	}
	return now.Add(time.Duration(attempts) * c.Backoff)
}

/*
Fail records a delivery error. The task is rescheduled while it has attempts
left and the next attempt still falls inside its deadline; otherwise it is
marked failed and final is true.
*/
func (c *Context) Fail(stage string, err error) (final bool, updateErr error) {
	if c == nil || c.Task == nil || c.settled {
		return false, nil
	}
	c.settled = true
	msg := stage
	if err != nil {
		msg = stage + ": " + err.Error()
	}
	msg = storedError(msg)
	now := time.Now()
	next := c.NextAttemptAt(now)
	exhausted := c.Task.Attempts >= c.Task.MaxAttempts
	pastDeadline := c.Task.Deadline != nil && next.After(*c.Task.Deadline)

	dbc := dbctx.Context{Ctx: c.Ctx}
	if IsPermanent(err) || exhausted || pastDeadline {
		c.Task.Status = types.TaskFailed
		c.Task.LastError = msg
		if c.Repo == nil {
			return true, nil
		}
		_, uErr := c.Repo.MarkFailed(dbc, c.Task.ID, msg)
		return true, uErr
	}
	c.Task.Status = types.TaskQueued
	c.Task.LastError = msg
	c.Task.NextAttemptAt = next
	if c.Repo == nil {
		return false, nil
	}
	_, uErr := c.Repo.Reschedule(dbc, c.Task.ID, next, msg)
	return false, uErr
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
