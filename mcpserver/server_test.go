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

type fakeTransport struct {
	sessionID string
	inbound   chan jsonrpc.Message
	outbound  chan jsonrpc.Message
	done      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sessionID: "fake-session",
		inbound:   make(chan jsonrpc.Message, 16),
		outbound:  make(chan jsonrpc.Message, 16),
		done:      make(chan struct{}),
	}
}

func (f *fakeTransport) SessionID() string { return f.sessionID }
func (f *fakeTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case f.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (f *fakeTransport) Receive(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case m := <-f.inbound:
		return m, nil
	case <-f.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
func (f *fakeTransport) Close() error          { return nil }
func (f *fakeTransport) Done() <-chan struct{} { return f.done }

type echoTool struct{}

func (echoTool) Descriptor() mcp.Tool {
	return mcp.Tool{BaseMetadata: mcp.BaseMetadata{Name: "echo"}, InputSchema: mcp.JSONSchema{Type: "object"}}
}
func (echoTool) Call(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
	return mcp.ToolCallResult{Content: []mcp.ContentBlock{mcp.TextContent{Text: "echoed"}}}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeTransport, *task.Runtime) {
	t.Helper()
	ft := newFakeTransport()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trueVal := true
	caps := mcp.ServerCapabilities{
		Tools: &mcp.ToolsCapability{},
		Tasks: &mcp.TasksCapability{Requests: []string{mcp.TaskMethodToolsCall}, List: &trueVal, Cancel: &trueVal},
	}
	sess := session.New(ft, mcp.Info{Name: "test-server"}, caps, logger)
	rt := task.NewRuntime(task.NewMemStore(task.MemStoreConfig{DefaultTTL: time.Hour, MaxTTL: time.Hour}), 0, logger)
	t.Cleanup(rt.Stop)
	srv := New(sess, rt)
	srv.RegisterTool(echoTool{})
	return srv, ft, rt
}

func TestToolsCallSynchronous(t *testing.T) {
	srv, ft, _ := newTestServer(t)
	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(1), Method: "initialize", Params: []byte(`{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"c","version":"1"}}`)}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go srv.sess.Run(ctx)

	<-ft.outbound // initialize result

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(2), Method: "tools/call", Params: []byte(`{"name":"echo"}`)}
	select {
	case out := <-ft.outbound:
		resp, ok := out.(*jsonrpc.Response)
		require.True(t, ok)
		assert.Contains(t, string(resp.Result), "echoed")
	case <-time.After(time.Second):
		t.Fatal("no tools/call response")
	}
}

func TestToolsCallTaskAugmented(t *testing.T) {
	srv, ft, rt := newTestServer(t)
	sess := srv.sess

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sess.Run(ctx)

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(1), Method: "initialize", Params: []byte(`{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"c","version":"1"}}`)}
	<-ft.outbound

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(2), Method: "tools/call", Params: []byte(`{"name":"echo","task":{}}`)}

	select {
	case out := <-ft.outbound:
		resp, ok := out.(*jsonrpc.Response)
		require.True(t, ok)
		assert.Contains(t, string(resp.Result), `"status":"working"`)
	case <-time.After(time.Second):
		t.Fatal("no task envelope response")
	}

	require.Eventually(t, func() bool {
		tasks, _, err := rt.Store().List(sess.SessionID(), nil, 10)
		if err != nil || len(tasks) == 0 {
			return false
		}
		return tasks[0].Status == mcp.TaskCompleted
	}, time.Second, time.Millisecond)
}
