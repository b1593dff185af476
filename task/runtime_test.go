package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrichter-oss/mcpcore/mcp"
)

func newTestRuntime() *Runtime {
	return NewRuntime(newTestStore(), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRuntimeStartCompletes(t *testing.T) {
	r := newTestRuntime()
	defer r.Stop()

	statuses := make(chan mcp.TaskStatusNotification, 8)
	env, err := r.Start("sess-1", nil, func(ctx context.Context) (any, error) {
		return map[string]any{"sum": 3}, nil
	}, func(n mcp.TaskStatusNotification) { statuses <- n })
	require.NoError(t, err)
	assert.Equal(t, mcp.TaskWorking, env.Task.Status)

	require.Eventually(t, func() bool {
		got, ok := r.Store().Get(env.Task.TaskID, "sess-1")
		return ok && got.Status.Terminal()
	}, time.Second, time.Millisecond)

	final, ok := r.Store().Get(env.Task.TaskID, "sess-1")
	require.True(t, ok)
	assert.Equal(t, mcp.TaskCompleted, final.Status)

	result, err := r.Store().GetResult(env.Task.TaskID, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum":3}`, string(result))
}

func TestRuntimeStartHandlesFailure(t *testing.T) {
	r := newTestRuntime()
	defer r.Stop()

	env, err := r.Start("sess-1", nil, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := r.Store().Get(env.Task.TaskID, "sess-1")
		return ok && got.Status.Terminal()
	}, time.Second, time.Millisecond)

	final, _ := r.Store().Get(env.Task.TaskID, "sess-1")
	assert.Equal(t, mcp.TaskFailed, final.Status)
}

func TestRuntimeCancelStopsWorker(t *testing.T) {
	r := newTestRuntime()
	defer r.Stop()

	started := make(chan struct{})
	env, err := r.Start("sess-1", nil, func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)
	require.NoError(t, err)
	<-started

	_, err = r.Cancel(env.Task.TaskID, "sess-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := r.Store().Get(env.Task.TaskID, "sess-1")
		return ok && got.Status == mcp.TaskCancelled
	}, time.Second, time.Millisecond)
}

func TestAutoStatusAroundSampleNoOpWithoutExecutionContext(t *testing.T) {
	called := false
	err := AutoStatusAroundSample(context.Background(), func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestAutoStatusAroundSampleBracketsWorkingAndInputRequired(t *testing.T) {
	s := newTestStore()
	task, err := s.Create("sess-1", nil)
	require.NoError(t, err)

	var seen []mcp.TaskStatus
	ec := &ExecutionContext{
		TaskID:    task.TaskID,
		SessionID: "sess-1",
		Store:     s,
		Notify: func(taskID, sessionID, status string, msg *string) {
			seen = append(seen, mcp.TaskStatus(status))
		},
	}
	ctx := WithExecutionContext(context.Background(), ec)

	var statusDuringCall mcp.TaskStatus
	err = AutoStatusAroundSample(ctx, func() error {
		got, _ := s.Get(task.TaskID, "sess-1")
		statusDuringCall = got.Status
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, mcp.TaskInputRequired, statusDuringCall)
	assert.Equal(t, []mcp.TaskStatus{mcp.TaskInputRequired, mcp.TaskWorking}, seen)

	final, _ := s.Get(task.TaskID, "sess-1")
	assert.Equal(t, mcp.TaskWorking, final.Status)
}
