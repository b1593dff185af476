package mcpserver

import "context"

type progressCtxKey struct{}

// ProgressReporter emits one notifications/progress update for the progressToken a caller
// attached to the request currently being handled. handleToolsCall installs one on the context
// passed to a tool's Call whenever the inbound request carried params._meta.progressToken
// (SPEC_FULL.md §8 end-to-end scenario 2).
type ProgressReporter func(ctx context.Context, progress float64, total *float64, message *string) error

func withProgressReporter(ctx context.Context, r ProgressReporter) context.Context {
	return context.WithValue(ctx, progressCtxKey{}, r)
}

func progressReporterFrom(ctx context.Context) (ProgressReporter, bool) {
	r, ok := ctx.Value(progressCtxKey{}).(ProgressReporter)
	return r, ok
}

// ReportProgress emits a progress update for the tools/call invocation ctx was derived from. It
// is a silent no-op if the caller attached no progressToken (or ctx carries no reporter at all),
// so tool bindings may call it unconditionally without checking whether progress was requested.
func ReportProgress(ctx context.Context, progress float64, total *float64) error {
	r, ok := progressReporterFrom(ctx)
	if !ok {
		return nil
	}
	return r(ctx, progress, total, nil)
}
