package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrichter-oss/mcpcore/mcp"
)

func newTestStore() *MemStore {
	return NewMemStore(MemStoreConfig{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour})
}

func TestCreateGet(t *testing.T) {
	s := newTestStore()
	task, err := s.Create("sess-1", nil)
	require.NoError(t, err)
	assert.Equal(t, mcp.TaskWorking, task.Status)

	got, ok := s.Get(task.TaskID, "sess-1")
	require.True(t, ok)
	assert.Equal(t, task.TaskID, got.TaskID)

	_, ok = s.Get(task.TaskID, "other-session")
	assert.False(t, ok, "a task must not be visible from a different session")
}

func TestUpdateStatusRejectsInvalidTransitions(t *testing.T) {
	s := newTestStore()
	task, err := s.Create("sess-1", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(task.TaskID, "sess-1", mcp.TaskInputRequired, nil))
	err = s.UpdateStatus(task.TaskID, "sess-1", mcp.TaskInputRequired, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStoreResultIsTerminalAndAbsorbing(t *testing.T) {
	s := newTestStore()
	task, err := s.Create("sess-1", nil)
	require.NoError(t, err)

	require.NoError(t, s.StoreResult(task.TaskID, "sess-1", mcp.TaskCompleted, []byte(`{"ok":true}`)))

	result, err := s.GetResult(task.TaskID, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))

	err = s.StoreResult(task.TaskID, "sess-1", mcp.TaskFailed, nil)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	err = s.UpdateStatus(task.TaskID, "sess-1", mcp.TaskWorking, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelIsIdempotentOnTerminal(t *testing.T) {
	s := newTestStore()
	task, err := s.Create("sess-1", nil)
	require.NoError(t, err)
	require.NoError(t, s.StoreResult(task.TaskID, "sess-1", mcp.TaskCompleted, nil))

	got, err := s.Cancel(task.TaskID, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, mcp.TaskCompleted, got.Status, "cancel must not override an already-terminal status")
}

func TestCreateEnforcesMaxTasksPerSession(t *testing.T) {
	s := NewMemStore(MemStoreConfig{DefaultTTL: time.Hour, MaxTasksPerSession: 1})
	_, err := s.Create("sess-1", nil)
	require.NoError(t, err)
	_, err = s.Create("sess-1", nil)
	assert.ErrorIs(t, err, ErrResourceLimit)
	_, err = s.Create("sess-2", nil)
	assert.NoError(t, err, "the per-session limit must not apply across sessions")
}

func TestListPaginatesWithCursor(t *testing.T) {
	s := newTestStore()
	var ids []string
	for i := 0; i < 5; i++ {
		task, err := s.Create("sess-1", nil)
		require.NoError(t, err)
		ids = append(ids, task.TaskID)
	}

	page1, cursor1, err := s.List("sess-1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, cursor1)

	page2, cursor2, err := s.List("sess-1", cursor1, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotNil(t, cursor2)

	page3, cursor3, err := s.List("sess-1", cursor2, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Nil(t, cursor3, "the final page must report an exhausted cursor")

	var seen []string
	for _, page := range [][]mcp.McpTask{page1, page2, page3} {
		for _, task := range page {
			seen = append(seen, task.TaskID)
		}
	}
	assert.ElementsMatch(t, ids, seen)
}

func TestSweepRemovesExpiredTasks(t *testing.T) {
	s := newTestStore()
	ttl := time.Millisecond
	task, err := s.Create("sess-1", &ttl)
	require.NoError(t, err)

	removed := s.Sweep(time.Now().UTC().Add(time.Hour))
	assert.Equal(t, 1, removed)

	_, ok := s.Get(task.TaskID, "sess-1")
	assert.False(t, ok)
}
