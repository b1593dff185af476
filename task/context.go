package task

import "context"

// ExecutionContext is the flow-local binding of the currently-executing task, used by the
// server's Sample/Elicit helpers to auto-transition status around outbound calls
// (SPEC_FULL.md §4.5 "Auto-status hook"). Go has no ambient flow-local storage, so per
// SPEC_FULL.md's documented implementation note it is threaded explicitly via context.Context
// rather than simulated with goroutine-local hacks.
type ExecutionContext struct {
	TaskID    string
	SessionID string
	Store     Store
	// Notify, if non-nil, is invoked after every status transition to emit a best-effort
	// notifications/tasks/status push.
	Notify func(taskID, sessionID string, status string, statusMessage *string)
}

type contextKey struct{}

// WithExecutionContext returns a context carrying ec, retrievable by FromContext.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ec)
}

// FromContext returns the ExecutionContext bound to ctx, or nil if none is active -- e.g. when
// a request is not task-augmented, Sample/Elicit behave normally (SPEC_FULL.md §4.5).
func FromContext(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(contextKey{}).(*ExecutionContext)
	return ec
}
