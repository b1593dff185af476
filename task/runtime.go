package task

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jrichter-oss/mcpcore/mcp"
)

// Handler is the original (non-task-augmented) request handler a task-augmented method wraps.
// It runs inside the spawned worker under a flow-local ExecutionContext.
type Handler func(ctx context.Context) (result any, err error)

// Runtime orchestrates the task execution lifecycle of SPEC_FULL.md §4.5: create, return the
// initial envelope, spawn a detached worker, store the outcome, and honor cancellation.
type Runtime struct {
	store  Store
	logger *slog.Logger

	mu        sync.Mutex
	cancelers map[string]context.CancelFunc

	sweepInterval time.Duration
	stopSweep     chan struct{}
}

func NewRuntime(store Store, sweepInterval time.Duration, logger *slog.Logger) *Runtime {
	r := &Runtime{
		store:         store,
		logger:        logger,
		cancelers:     make(map[string]context.CancelFunc),
		sweepInterval: sweepInterval,
		stopSweep:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go r.runSweeper()
	}
	return r
}

func (r *Runtime) runSweeper() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n := r.store.Sweep(time.Now().UTC())
			if n > 0 {
				r.logger.Info("task sweep removed expired tasks", slog.Int("count", n))
			}
		case <-r.stopSweep:
			return
		}
	}
}

// Stop halts the background TTL sweeper. It is not idempotent: a second call panics.
func (r *Runtime) Stop() { close(r.stopSweep) }

// Store returns the Runtime's underlying Store, for direct reads (tasks/get, tasks/result,
// tasks/list) that don't need the execution machinery.
func (r *Runtime) Store() Store { return r.store }

// Start creates a task, returns its envelope immediately, and spawns a detached worker running
// h under a flow-local ExecutionContext. notify, if non-nil, is called on every status change
// (including the terminal one) to drive a best-effort notifications/tasks/status push.
func (r *Runtime) Start(sessionID string, ttl *time.Duration, h Handler, notify func(mcp.TaskStatusNotification)) (mcp.TaskEnvelope, error) {
	t, err := r.store.Create(sessionID, ttl)
	if err != nil {
		return mcp.TaskEnvelope{}, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancelers[t.TaskID] = cancel
	r.mu.Unlock()

	notifyFn := func(taskID, sid string, status string, msg *string) {
		if notify != nil {
			notify(mcp.TaskStatusNotification{TaskID: taskID, Status: mcp.TaskStatus(status), StatusMessage: msg})
		}
	}
	ec := &ExecutionContext{TaskID: t.TaskID, SessionID: sessionID, Store: r.store, Notify: notifyFn}

	go r.runWorker(workerCtx, ec, h)

	return mcp.TaskEnvelope{Task: t}, nil
}

func (r *Runtime) runWorker(ctx context.Context, ec *ExecutionContext, h Handler) {
	defer func() {
		r.mu.Lock()
		delete(r.cancelers, ec.TaskID)
		r.mu.Unlock()
	}()

	ctx = WithExecutionContext(ctx, ec)

	resultCh := make(chan struct {
		result any
		err    error
	}, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- struct {
					result any
					err    error
				}{nil, fmt.Errorf("task worker panicked: %v", rec)}
			}
		}()
		result, err := h(ctx)
		resultCh <- struct {
			result any
			err    error
		}{result, err}
	}()

	select {
	case <-ctx.Done():
		t, cerr := r.store.Cancel(ec.TaskID, ec.SessionID)
		if cerr == nil {
			ec.Notify(ec.TaskID, ec.SessionID, string(t.Status), nil)
		}
	case out := <-resultCh:
		if out.err != nil {
			msg := out.err.Error()
			if serr := r.store.StoreResult(ec.TaskID, ec.SessionID, mcp.TaskFailed, nil); serr == nil {
				ec.Notify(ec.TaskID, ec.SessionID, string(mcp.TaskFailed), &msg)
			}
			return
		}
		body, merr := json.Marshal(out.result)
		if merr != nil {
			msg := merr.Error()
			_ = r.store.StoreResult(ec.TaskID, ec.SessionID, mcp.TaskFailed, nil)
			ec.Notify(ec.TaskID, ec.SessionID, string(mcp.TaskFailed), &msg)
			return
		}
		if serr := r.store.StoreResult(ec.TaskID, ec.SessionID, mcp.TaskCompleted, body); serr == nil {
			ec.Notify(ec.TaskID, ec.SessionID, string(mcp.TaskCompleted), nil)
		}
	}
}

// Cancel triggers the worker's cancellation token for taskID, per SPEC_FULL.md §4.5: the
// worker's context is cancelled and the store transitions to Cancelled regardless of how (or
// whether) the worker observes the cancellation.
func (r *Runtime) Cancel(taskID, sessionID string) (mcp.McpTask, error) {
	r.mu.Lock()
	cancel, ok := r.cancelers[taskID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return r.store.Cancel(taskID, sessionID)
}

// AutoStatusAroundSample brackets an outbound Sample/Elicit call with the auto-status hook of
// SPEC_FULL.md §4.5: Working->InputRequired on entry, InputRequired->Working on exit,
// regardless of outcome. If ctx carries no ExecutionContext, it is a no-op.
func AutoStatusAroundSample(ctx context.Context, fn func() error) error {
	ec := FromContext(ctx)
	if ec == nil {
		return fn()
	}
	_ = ec.Store.UpdateStatus(ec.TaskID, ec.SessionID, mcp.TaskInputRequired, nil)
	ec.Notify(ec.TaskID, ec.SessionID, string(mcp.TaskInputRequired), nil)
	defer func() {
		_ = ec.Store.UpdateStatus(ec.TaskID, ec.SessionID, mcp.TaskWorking, nil)
		ec.Notify(ec.TaskID, ec.SessionID, string(mcp.TaskWorking), nil)
	}()
	return fn()
}
