// Package session implements the bidirectional JSON-RPC dispatcher of SPEC_FULL.md §4.2: a
// Session owns one Transport, correlates requests and responses by id, routes inbound requests
// and notifications through registered handlers wrapped in a last-registered-outermost filter
// chain, and enforces the initialize handshake's lifecycle gate. The filter-chaining idiom is
// grounded on the teacher's svrcore Policy slice ("last-registered is outermost" middleware
// composition, svrcore/svrcore.go BuildHandler), generalized here from an HTTP-specific chain
// to a message-generic one: each filter closes over "next" directly rather than being popped
// from a queue, since filters wrap a handler once at dispatch-setup time.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jrichter-oss/mcpcore/internal/aids"
	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/mcperrors"
	"github.com/jrichter-oss/mcpcore/transport"
)

// State is the session lifecycle state machine of SPEC_FULL.md §3.
type State int

const (
	Created State = iota
	Initializing
	Initialized
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// RequestHandler handles one inbound JSON-RPC request and returns its result (marshaled to
// jsontext by the caller) or a *mcperrors.DomainError.
type RequestHandler func(ctx context.Context, req *jsonrpc.Request) (result any, err error)

// NotificationHandler handles one inbound JSON-RPC notification. Errors are logged, never
// propagated to the peer (SPEC_FULL.md §4.2).
type NotificationHandler func(ctx context.Context, n *jsonrpc.Notification)

// RequestFilter wraps a RequestHandler with cross-cutting behavior (logging, metrics, tracing,
// auto task-status bookkeeping). Filters compose last-registered-outermost: RegisterMessageFilter
// appends to s.filters, and handleRequest rebuilds the wrapped handler from innermost (the
// method handler) outward on every dispatch.
type RequestFilter func(next RequestHandler) RequestHandler

type pendingEntry struct {
	resultCh chan *jsonrpc.Response
	errCh    chan *jsonrpc.ErrorResponse
	cancelCh chan struct{}
}

// Session is the bidirectional dispatcher owning one Transport for its lifetime.
type Session struct {
	transport transport.Transport
	logger    *slog.Logger

	mu    sync.Mutex
	state State

	NegotiatedProtocolVersion string
	ClientCapabilities        mcp.ClientCapabilities
	ServerCapabilities        mcp.ServerCapabilities
	ClientInfo                mcp.Info
	ServerInfo                mcp.Info

	pendingMu sync.Mutex
	pending   map[string]*pendingEntry // keyed by RequestID.String()

	inboundMu     sync.Mutex
	inboundCancel map[string]context.CancelFunc // keyed by RequestID.String(), one entry per in-flight inbound request

	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string][]NotificationHandler
	filters              []RequestFilter

	nextID uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a Session bound to t. The caller must call Run to begin pumping inbound
// messages.
func New(t transport.Transport, serverInfo mcp.Info, serverCaps mcp.ServerCapabilities, logger *slog.Logger) *Session {
	return &Session{
		transport:            t,
		logger:               logger,
		state:                Created,
		ServerInfo:           serverInfo,
		ServerCapabilities:   serverCaps,
		pending:              make(map[string]*pendingEntry),
		inboundCancel:        make(map[string]context.CancelFunc),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string][]NotificationHandler),
		closed:               make(chan struct{}),
	}
}

// RegisterRequestHandler installs the single handler for method. Re-registering a method
// replaces its prior handler.
func (s *Session) RegisterRequestHandler(method string, h RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestHandlers[method] = h
}

// RegisterNotificationHandler appends h to method's handler list; all registered handlers run
// concurrently on receipt.
func (s *Session) RegisterNotificationHandler(method string, h NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationHandlers[method] = append(s.notificationHandlers[method], h)
}

// RegisterMessageFilter appends f to the filter chain. Per SPEC_FULL.md §4.2, the
// last-registered filter is outermost: it sees the inbound request first and the outbound
// result last.
func (s *Session) RegisterMessageFilter(f RequestFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
}

// SessionID returns the identity of the underlying transport's session.
func (s *Session) SessionID() string { return s.transport.SessionID() }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(v State) {
	s.mu.Lock()
	s.state = v
	s.mu.Unlock()
}

// TransitionInitializing moves the session from Created to Initializing; called by the
// initialize handler before validating the handshake.
func (s *Session) TransitionInitializing() { s.setState(Initializing) }

// TransitionInitialized moves the session to Initialized; called by the initialize handler
// once the handshake has been validated and the initialize result is ready to be returned.
func (s *Session) TransitionInitialized() { s.setState(Initialized) }

// Done returns a channel closed once the session has closed, either explicitly or because its
// transport died.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Close disposes the session and its transport. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.setState(Closed)
		close(s.closed)
		s.pendingMu.Lock()
		for _, p := range s.pending {
			close(p.cancelCh)
		}
		s.pendingMu.Unlock()
	})
	return s.transport.Close()
}

// Run pumps inbound messages from the transport until it closes or ctx is cancelled. It is
// meant to be run in its own goroutine for the lifetime of the session.
func (s *Session) Run(ctx context.Context) {
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.transport.Done():
			return
		default:
		}
		msg, err := s.transport.Receive(ctx)
		if err != nil {
			return
		}
		go s.dispatch(ctx, msg)
	}
}

func (s *Session) dispatch(ctx context.Context, msg jsonrpc.Message) {
	switch m := msg.(type) {
	case *jsonrpc.Request:
		s.handleRequest(ctx, m)
	case *jsonrpc.Notification:
		s.handleNotification(ctx, m)
	case *jsonrpc.Response:
		s.resolvePending(m.ID, m, nil)
	case *jsonrpc.ErrorResponse:
		s.resolvePending(m.ID, nil, m)
	}
}

func (s *Session) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	s.mu.Lock()
	state := s.state
	handler, ok := s.requestHandlers[req.Method]
	filters := make([]RequestFilter, len(s.filters))
	copy(filters, s.filters)
	s.mu.Unlock()

	if !lifecycleAllows(state, req.Method) {
		s.replyError(ctx, req.ID, mcperrors.InvalidRequest("method %q not permitted in state %s", req.Method, state))
		return
	}

	if !ok {
		s.replyError(ctx, req.ID, mcperrors.MethodNotFound(req.Method))
		return
	}

	// last-registered filter wraps outermost: build from innermost (handler) outward.
	wrapped := handler
	for _, f := range filters {
		wrapped = f(wrapped)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	reqCtx = transport.WithRequestID(reqCtx, req.ID)
	idKey := req.ID.String()
	s.inboundMu.Lock()
	s.inboundCancel[idKey] = cancel
	s.inboundMu.Unlock()
	defer func() {
		s.inboundMu.Lock()
		delete(s.inboundCancel, idKey)
		s.inboundMu.Unlock()
		cancel()
	}()

	result, err := wrapped(reqCtx, req)
	if err != nil {
		var de *mcperrors.DomainError
		if e, ok := err.(*mcperrors.DomainError); ok {
			de = e
		} else {
			de = mcperrors.Internal("%s", err.Error())
		}
		s.replyError(ctx, req.ID, de)
		return
	}

	resultBytes, mErr := jsonMarshal(result)
	if mErr != nil {
		s.replyError(ctx, req.ID, mcperrors.Internal("marshaling result: %s", mErr.Error()))
		return
	}
	resp := &jsonrpc.Response{ID: req.ID, Result: resultBytes}
	if err := s.transport.Send(ctx, resp); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to send response", slog.String("method", req.Method), slog.String("error", err.Error()))
	}
}

func (s *Session) replyError(ctx context.Context, id jsonrpc.RequestID, de *mcperrors.DomainError) {
	resp := &jsonrpc.ErrorResponse{ID: id, Error: &jsonrpc.Error{Code: de.Code, Message: de.Message}}
	if de.Data != nil {
		if b, err := jsonMarshal(de.Data); err == nil {
			resp.Error.Data = b
		}
	}
	if err := s.transport.Send(ctx, resp); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to send error response", slog.String("error", err.Error()))
	}
}

func (s *Session) handleNotification(ctx context.Context, n *jsonrpc.Notification) {
	if n.Method == "notifications/cancelled" {
		s.handleCancelNotification(n)
		return
	}
	s.mu.Lock()
	handlers := append([]NotificationHandler(nil), s.notificationHandlers[n.Method]...)
	s.mu.Unlock()
	for _, h := range handlers {
		go func(h NotificationHandler) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.LogAttrs(ctx, slog.LevelError, "notification handler panicked", slog.String("method", n.Method), slog.Any("recover", r))
				}
			}()
			h(ctx, n)
		}(h)
	}
}

type cancelledParams struct {
	RequestID jsonrpc.RequestID `json:"requestId"`
	Reason    *string           `json:"reason,omitempty"`
}

func (s *Session) handleCancelNotification(n *jsonrpc.Notification) {
	var p cancelledParams
	if err := jsonUnmarshal(n.Params, &p); err != nil {
		return
	}
	idKey := p.RequestID.String()

	s.pendingMu.Lock()
	entry, ok := s.pending[idKey]
	s.pendingMu.Unlock()
	if ok {
		close(entry.cancelCh)
		return
	}

	// The cancelled id names a request this session is handling (not one it sent), so cancel
	// the ctx its handler was dispatched with instead.
	s.inboundMu.Lock()
	cancel, ok := s.inboundCancel[idKey]
	s.inboundMu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Session) resolvePending(id jsonrpc.RequestID, resp *jsonrpc.Response, errResp *jsonrpc.ErrorResponse) {
	s.pendingMu.Lock()
	entry, ok := s.pending[id.String()]
	if ok {
		delete(s.pending, id.String())
	}
	s.pendingMu.Unlock()
	if !ok {
		s.logger.Warn("stray response with unknown id", slog.String("id", id.String()))
		return
	}
	if resp != nil {
		entry.resultCh <- resp
	} else {
		entry.errCh <- errResp
	}
}

// SendRequest allocates a fresh RequestID, writes a Request, and blocks until a correlated
// Response/Error arrives, ctx is cancelled, or the session closes.
func (s *Session) SendRequest(ctx context.Context, method string, params any) (jsonrpc.ResultValue, error) {
	s.mu.Lock()
	s.nextID++
	id := jsonrpc.NewStringID(fmt.Sprintf("%s-%d", uuid.NewString()[:8], s.nextID))
	s.mu.Unlock()

	paramBytes, err := jsonMarshal(params)
	if err != nil {
		return nil, fmt.Errorf("session: marshaling params: %w", err)
	}
	req := &jsonrpc.Request{ID: id, Method: method, Params: paramBytes}

	entry := &pendingEntry{
		resultCh: make(chan *jsonrpc.Response, 1),
		errCh:    make(chan *jsonrpc.ErrorResponse, 1),
		cancelCh: make(chan struct{}),
	}
	s.pendingMu.Lock()
	s.pending[id.String()] = entry
	s.pendingMu.Unlock()

	if err := s.transport.Send(ctx, req); err != nil {
		s.pendingMu.Lock()
		delete(s.pending, id.String())
		s.pendingMu.Unlock()
		return nil, err
	}

	select {
	case r := <-entry.resultCh:
		return jsonrpc.ResultValue(r.Result), nil
	case e := <-entry.errCh:
		return nil, e.Error
	case <-entry.cancelCh:
		select {
		case <-s.closed:
			// Close also closes every pending cancelCh; a closed session is a lost connection.
			return nil, &mcperrors.ConnectionLost{}
		default:
		}
		s.sendCancelNotification(ctx, id, "")
		return nil, &mcperrors.Cancelled{}
	case <-ctx.Done():
		s.sendCancelNotification(ctx, id, "context cancelled")
		return nil, ctx.Err()
	case <-s.closed:
		return nil, &mcperrors.ConnectionLost{}
	}
}

func (s *Session) sendCancelNotification(ctx context.Context, id jsonrpc.RequestID, reason string) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	params, err := jsonMarshal(cancelledParams{RequestID: id, Reason: reasonPtr})
	aids.Must0(err)
	_ = s.transport.Send(ctx, &jsonrpc.Notification{Method: "notifications/cancelled", Params: params})
}

// SendNotification writes a fire-and-forget notification.
func (s *Session) SendNotification(ctx context.Context, method string, params any) error {
	paramBytes, err := jsonMarshal(params)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, &jsonrpc.Notification{Method: method, Params: paramBytes})
}

// lifecycleAllows enforces SPEC_FULL.md §4.6: in Created state only initialize, ping, and
// cancellation notifications are accepted.
func lifecycleAllows(state State, method string) bool {
	if state == Initialized {
		return true
	}
	if state == Closed {
		return false
	}
	switch method {
	case "initialize", "ping":
		return true
	default:
		return false
	}
}
