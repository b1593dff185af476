package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
)

func TestTracingFilterWrapsHandlerAndPropagatesResult(t *testing.T) {
	filter := NewTracingFilter("sess-1")
	called := false
	wrapped := filter(func(ctx context.Context, req *jsonrpc.Request) (any, error) {
		called = true
		assert.NotNil(t, ctx)
		return map[string]any{"ok": true}, nil
	})

	result, err := wrapped(context.Background(), &jsonrpc.Request{Method: "ping"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, map[string]any{"ok": true}, result)
}

func TestTracingFilterRecordsHandlerError(t *testing.T) {
	filter := NewTracingFilter("sess-1")
	wantErr := assert.AnError
	wrapped := filter(func(ctx context.Context, req *jsonrpc.Request) (any, error) {
		return nil, wantErr
	})

	_, err := wrapped(context.Background(), &jsonrpc.Request{Method: "tools/call"})
	assert.ErrorIs(t, err, wantErr)
}
