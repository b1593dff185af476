package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/session"
	"github.com/jrichter-oss/mcpcore/task"
)

func newElicitTestServer(t *testing.T) (*Server, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trueVal := true
	caps := mcp.ServerCapabilities{Tools: &mcp.ToolsCapability{}}
	sess := session.New(ft, mcp.Info{Name: "test-server"}, caps, logger)
	sess.ClientCapabilities = mcp.ClientCapabilities{Elicitation: &mcp.ElicitationCapability{Form: &trueVal}}
	sess.TransitionInitializing()
	sess.TransitionInitialized()
	rt := task.NewRuntime(task.NewMemStore(task.MemStoreConfig{DefaultTTL: time.Hour, MaxTTL: time.Hour}), 0, logger)
	t.Cleanup(rt.Stop)
	srv := New(sess, rt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go sess.Run(ctx)
	return srv, ft
}

func respondToNextElicit(ft *fakeTransport, result string) {
	go func() {
		req := (<-ft.outbound).(*jsonrpc.Request)
		ft.inbound <- &jsonrpc.Response{ID: req.ID, Result: []byte(result)}
	}()
}

func TestElicitTypedAcceptsResponseMatchingSchema(t *testing.T) {
	srv, ft := newElicitTestServer(t)
	fields := []FieldDescriptor{{Name: "name", Kind: PrimitiveString, Required: true}}

	respondToNextElicit(ft, `{"action":"accept","content":{"name":"Ada"}}`)

	out, err := srv.ElicitTyped(context.Background(), "who are you?", fields)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada"}, out)
}

func TestElicitTypedRejectsResponseViolatingSchema(t *testing.T) {
	srv, ft := newElicitTestServer(t)
	fields := []FieldDescriptor{{Name: "name", Kind: PrimitiveString, Required: true}}

	// The client claims acceptance but omits the required field.
	respondToNextElicit(ft, `{"action":"accept","content":{}}`)

	_, err := srv.ElicitTyped(context.Background(), "who are you?", fields)
	assert.Error(t, err)
}

func TestElicitTypedReturnsEmptyMapOnDecline(t *testing.T) {
	srv, ft := newElicitTestServer(t)
	fields := []FieldDescriptor{{Name: "name", Kind: PrimitiveString, Required: true}}

	respondToNextElicit(ft, `{"action":"decline"}`)

	out, err := srv.ElicitTyped(context.Background(), "who are you?", fields)
	require.NoError(t, err)
	assert.Empty(t, out)
}
