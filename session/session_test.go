package session

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
	"github.com/jrichter-oss/mcpcore/mcperrors"
)

// fakeTransport is an in-process transport.Transport backed by two channels, letting a test
// drive both the "peer sends a message" and "session sends a message" directions directly.
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
func (f *fakeTransport) Close() error            { return nil }
func (f *fakeTransport) Done() <-chan struct{}   { return f.done }

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHandleRequestDispatchesToRegisteredHandler(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, mcp.Info{Name: "srv"}, mcp.ServerCapabilities{}, newTestLogger())
	sess.setState(Initialized)
	sess.RegisterRequestHandler("ping", func(ctx context.Context, req *jsonrpc.Request) (any, error) {
		return struct{}{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sess.Run(ctx)

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(1), Method: "ping"}

	select {
	case out := <-ft.outbound:
		resp, ok := out.(*jsonrpc.Response)
		require.True(t, ok)
		n, _ := resp.ID.Int64()
		assert.Equal(t, int64(1), n)
	case <-time.After(time.Second):
		t.Fatal("no response received")
	}
}

func TestHandleRequestRejectsUnknownMethodWithMethodNotFound(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, mcp.Info{Name: "srv"}, mcp.ServerCapabilities{}, newTestLogger())
	sess.setState(Initialized)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sess.Run(ctx)

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(1), Method: "nonexistent"}

	select {
	case out := <-ft.outbound:
		errResp, ok := out.(*jsonrpc.ErrorResponse)
		require.True(t, ok)
		assert.Equal(t, jsonrpc.CodeMethodNotFound, errResp.Error.Code)
	case <-time.After(time.Second):
		t.Fatal("no response received")
	}
}

func TestLifecycleRejectsNonHandshakeMethodsBeforeInitialized(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, mcp.Info{Name: "srv"}, mcp.ServerCapabilities{}, newTestLogger())
	sess.RegisterRequestHandler("tools/list", func(ctx context.Context, req *jsonrpc.Request) (any, error) {
		return struct{}{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sess.Run(ctx)

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(1), Method: "tools/list"}

	select {
	case out := <-ft.outbound:
		errResp, ok := out.(*jsonrpc.ErrorResponse)
		require.True(t, ok)
		assert.Equal(t, jsonrpc.CodeInvalidRequest, errResp.Error.Code)
	case <-time.After(time.Second):
		t.Fatal("no response received")
	}
}

func TestFilterChainLastRegisteredIsOutermost(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, mcp.Info{Name: "srv"}, mcp.ServerCapabilities{}, newTestLogger())
	sess.setState(Initialized)

	var order []string
	sess.RegisterRequestHandler("ping", func(ctx context.Context, req *jsonrpc.Request) (any, error) {
		order = append(order, "handler")
		return struct{}{}, nil
	})
	sess.RegisterMessageFilter(func(next RequestHandler) RequestHandler {
		return func(ctx context.Context, req *jsonrpc.Request) (any, error) {
			order = append(order, "filter-1-before")
			r, err := next(ctx, req)
			order = append(order, "filter-1-after")
			return r, err
		}
	})
	sess.RegisterMessageFilter(func(next RequestHandler) RequestHandler {
		return func(ctx context.Context, req *jsonrpc.Request) (any, error) {
			order = append(order, "filter-2-before")
			r, err := next(ctx, req)
			order = append(order, "filter-2-after")
			return r, err
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sess.Run(ctx)

	ft.inbound <- &jsonrpc.Request{ID: jsonrpc.NewIntID(1), Method: "ping"}
	<-ft.outbound

	assert.Equal(t, []string{
		"filter-2-before", "filter-1-before", "handler", "filter-1-after", "filter-2-after",
	}, order)
}

func TestSendRequestResolvesOnMatchingResponse(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, mcp.Info{Name: "srv"}, mcp.ServerCapabilities{}, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go sess.Run(ctx)

	go func() {
		req := (<-ft.outbound).(*jsonrpc.Request)
		ft.inbound <- &jsonrpc.Response{ID: req.ID, Result: []byte(`{"ok":true}`)}
	}()

	result, err := sess.SendRequest(ctx, "sampling/createMessage", struct{}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))
}

func TestSendRequestReturnsConnectionLostWhenSessionCloses(t *testing.T) {
	ft := newFakeTransport()
	sess := New(ft, mcp.Info{Name: "srv"}, mcp.ServerCapabilities{}, newTestLogger())

	go func() {
		<-ft.outbound
		sess.Close()
	}()

	_, err := sess.SendRequest(context.Background(), "roots/list", struct{}{})
	var lost *mcperrors.ConnectionLost
	assert.ErrorAs(t, err, &lost)
}
