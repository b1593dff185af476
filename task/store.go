// Package task implements the durable task subsystem of SPEC_FULL.md §4.5: the Store contract,
// an in-memory implementation with TTL sweep, the flow-local ExecutionContext, and the
// execution Runtime that creates a task, returns its envelope, and spawns the detached worker.
// MemStore serializes every mutation behind a single mutex rather than the teacher's
// ETag-based optimistic-concurrency pattern (mcpsvr/resources' AccessConditions/
// CheckPreconditions, svrcore/validatepreconditions.go): that pattern exists in the teacher to
// arbitrate concurrent writers across HTTP requests hitting independently-racing backend
// storage, which has no analogue here -- there is no HTTP layer or external store between the
// execution runtime and MemStore, so the mutex already gives every UpdateStatus/StoreResult/
// Cancel call a consistent read-modify-write with no conflict window to retry against (see
// DESIGN.md).
package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcp"
)

// ResultPayload is the opaque, already-marshaled JSON result of a completed or failed task.
type ResultPayload = jsonrpc.ResultValue

// ErrNotFound is returned by UpdateStatus/StoreResult/GetResult/Cancel when no task matches
// (Get reports a miss through its bool result instead).
var ErrNotFound = errors.New("task: not found")

// ErrAlreadyTerminal is returned by StoreResult when the task has already reached a terminal
// status (terminal is absorbing, per SPEC_FULL.md §3).
var ErrAlreadyTerminal = errors.New("task: already terminal")

// ErrResourceLimit is returned by Create when a configured MaxTasks/MaxTasksPerSession bound
// would be exceeded.
var ErrResourceLimit = errors.New("task: resource limit exceeded")

// ErrInvalidTransition is returned by UpdateStatus when the requested status change is not
// permitted by McpTask's transition table.
var ErrInvalidTransition = errors.New("task: invalid status transition")

// record is the store's internal representation: the public McpTask plus bookkeeping fields
// that never cross the wire.
type record struct {
	task      mcp.McpTask
	sessionID string
	result    ResultPayload
	hasResult bool
	expiresAt *time.Time
}

// Store is the task subsystem's persistence contract. The in-memory implementation below
// satisfies it; a durable implementation (e.g. backed by a database) may be substituted
// without changing Runtime or ExecutionContext (SPEC_FULL.md Non-goals: the core only
// mandates the interface, it does not itself persist across restarts).
type Store interface {
	Create(sessionID string, ttl *time.Duration) (mcp.McpTask, error)
	Get(taskID, sessionID string) (mcp.McpTask, bool)
	UpdateStatus(taskID, sessionID string, status mcp.TaskStatus, statusMessage *string) error
	StoreResult(taskID, sessionID string, terminal mcp.TaskStatus, result ResultPayload) error
	GetResult(taskID, sessionID string) (ResultPayload, error)
	List(sessionID string, cursor *string, pageSize int) ([]mcp.McpTask, *string, error)
	Cancel(taskID, sessionID string) (mcp.McpTask, error)
	// Sweep removes every task whose expiry has passed; returns the count removed. Called
	// periodically by a background goroutine (see Runtime.runSweeper).
	Sweep(now time.Time) int
}

// MemStore is the in-memory Store implementation.
type MemStore struct {
	mu                 sync.Mutex
	tasks              map[string]*record
	order              []string // taskId creation order, walked by Sweep
	defaultTTL         time.Duration
	maxTTL             time.Duration
	pollInterval       time.Duration
	maxTasks           int
	maxTasksPerSession int
	listPageSize       int
}

// MemStoreConfig configures a MemStore; every field except PollInterval maps directly to one
// of config.Config's TASK_DEFAULT_TTL / TASK_MAX_TTL / MAX_TASKS / MAX_TASKS_PER_SESSION /
// TASK_LIST_PAGE_SIZE knobs. No config knob sets PollInterval.
type MemStoreConfig struct {
	DefaultTTL         time.Duration
	MaxTTL             time.Duration
	PollInterval       time.Duration
	MaxTasks           int
	MaxTasksPerSession int
	// ListPageSize is the page size List uses when its caller passes pageSize <= 0. Defaults to
	// 50 when left zero, so existing callers and tests that don't set it keep working.
	ListPageSize int
}

func NewMemStore(cfg MemStoreConfig) *MemStore {
	pageSize := cfg.ListPageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &MemStore{
		tasks:              make(map[string]*record),
		defaultTTL:         cfg.DefaultTTL,
		maxTTL:             cfg.MaxTTL,
		pollInterval:       cfg.PollInterval,
		maxTasks:           cfg.MaxTasks,
		maxTasksPerSession: cfg.MaxTasksPerSession,
		listPageSize:       pageSize,
	}
}

func nowISO() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *MemStore) Create(sessionID string, requestedTTL *time.Duration) (mcp.McpTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxTasks > 0 && len(s.tasks) >= s.maxTasks {
		return mcp.McpTask{}, ErrResourceLimit
	}
	if s.maxTasksPerSession > 0 {
		count := 0
		for _, r := range s.tasks {
			if r.sessionID == sessionID {
				count++
			}
		}
		if count >= s.maxTasksPerSession {
			return mcp.McpTask{}, ErrResourceLimit
		}
	}

	ttl := s.defaultTTL
	if requestedTTL != nil {
		ttl = *requestedTTL
		if s.maxTTL > 0 && ttl > s.maxTTL {
			ttl = s.maxTTL
		}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	var ttlPtr *int64
	var expiresAt *time.Time
	if ttl > 0 {
		ms := ttl.Milliseconds()
		ttlPtr = &ms
		exp := now.Add(ttl)
		expiresAt = &exp
	}
	pollMs := s.pollInterval.Milliseconds()

	t := mcp.McpTask{
		TaskID:             id,
		Status:             mcp.TaskWorking,
		CreatedAt:          now.Format(time.RFC3339Nano),
		LastUpdatedAt:      now.Format(time.RFC3339Nano),
		TTLMillis:          ttlPtr,
		PollIntervalMillis: &pollMs,
	}
	s.tasks[id] = &record{task: t, sessionID: sessionID, expiresAt: expiresAt}
	s.order = append(s.order, id)
	return t, nil
}

func (s *MemStore) lookup(taskID, sessionID string) (*record, bool) {
	r, ok := s.tasks[taskID]
	if !ok || r.sessionID != sessionID {
		return nil, false
	}
	return r, true
}

func (s *MemStore) Get(taskID, sessionID string) (mcp.McpTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(taskID, sessionID)
	if !ok {
		return mcp.McpTask{}, false
	}
	return r.task, true
}

func (s *MemStore) UpdateStatus(taskID, sessionID string, status mcp.TaskStatus, statusMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(taskID, sessionID)
	if !ok {
		return ErrNotFound
	}
	if !r.task.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.task.Status, status)
	}
	r.task.Status = status
	r.task.StatusMessage = statusMessage
	r.task.LastUpdatedAt = nowISO()
	return nil
}

func (s *MemStore) StoreResult(taskID, sessionID string, terminal mcp.TaskStatus, result ResultPayload) error {
	if terminal != mcp.TaskCompleted && terminal != mcp.TaskFailed {
		return fmt.Errorf("task: StoreResult terminal status must be completed or failed, got %s", terminal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(taskID, sessionID)
	if !ok {
		return ErrNotFound
	}
	if r.task.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	if !r.task.Status.CanTransitionTo(terminal) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.task.Status, terminal)
	}
	r.task.Status = terminal
	r.task.LastUpdatedAt = nowISO()
	r.result = result
	r.hasResult = true
	return nil
}

func (s *MemStore) GetResult(taskID, sessionID string) (ResultPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(taskID, sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	if !r.hasResult {
		return nil, fmt.Errorf("task: no result stored for %s", taskID)
	}
	return r.result, nil
}

// List implements SPEC_FULL.md §4.5's keyset pagination, ordered by taskId ascending. IDs are
// sorted explicitly rather than relied upon to already be in creation order: uuid.NewString
// (v4, used by Create) is not monotonic, so insertion order and ascending taskId order are two
// different things here.
func (s *MemStore) List(sessionID string, cursor *string, pageSize int) ([]mcp.McpTask, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pageSize <= 0 {
		pageSize = s.listPageSize
	}

	now := time.Now().UTC()
	ids := make([]string, 0, len(s.tasks))
	for id, r := range s.tasks {
		if r.sessionID != sessionID {
			continue
		}
		if r.expiresAt != nil && !now.Before(*r.expiresAt) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if cursor != nil {
		start = sort.SearchStrings(ids, *cursor)
		if start < len(ids) && ids[start] == *cursor {
			start++
		}
	}

	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[start:end]

	out := make([]mcp.McpTask, 0, len(page))
	for _, id := range page {
		out = append(out, s.tasks[id].task)
	}

	var next *string
	if end < len(ids) {
		id := page[len(page)-1]
		next = &id
	}
	return out, next, nil
}

func (s *MemStore) Cancel(taskID, sessionID string) (mcp.McpTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(taskID, sessionID)
	if !ok {
		return mcp.McpTask{}, ErrNotFound
	}
	if r.task.Status.Terminal() {
		return r.task, nil // idempotent no-op, per SPEC_FULL.md §4.5
	}
	r.task.Status = mcp.TaskCancelled
	r.task.LastUpdatedAt = nowISO()
	return r.task, nil
}

func (s *MemStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	kept := s.order[:0:0]
	for _, id := range s.order {
		r, ok := s.tasks[id]
		if ok && r.expiresAt != nil && !now.Before(*r.expiresAt) {
			delete(s.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
