package streamhttp

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/ssestore"
	"github.com/jrichter-oss/mcpcore/transport"
)

// SessionTransport is the transport.Transport implementation backing one Streamable HTTP
// session: it multiplexes zero-or-more concurrent per-request SSE pipes and one unsolicited-
// message pipe onto a single inbound Receive queue, per SPEC_FULL.md §4.3.
type SessionTransport struct {
	sessionID string
	store     ssestore.EventStore
	stateless bool

	inbound chan jsonrpc.Message

	mu         sync.Mutex
	reqPipes   map[string]chan jsonrpc.Message // keyed by RequestID.String()
	getActive  bool
	writer     ssestore.Writer // unsolicited stream writer; nil in stateless mode

	closeOnce sync.Once
	done      chan struct{}
}

// NewSessionTransport constructs a SessionTransport and, unless stateless, creates its
// unsolicited-message event stream (stream id "unsolicited") up front so replay works even
// before the first GET connects.
func NewSessionTransport(sessionID string, store ssestore.EventStore, stateless bool) *SessionTransport {
	st := &SessionTransport{
		sessionID: sessionID,
		store:     store,
		stateless: stateless,
		inbound:   make(chan jsonrpc.Message, 16),
		reqPipes:  make(map[string]chan jsonrpc.Message),
		done:      make(chan struct{}),
	}
	if !stateless {
		w, _ := store.CreateStream(sessionID, "unsolicited", ssestore.Streaming)
		st.writer = w
	}
	return st
}

func (st *SessionTransport) SessionID() string { return st.sessionID }
func (st *SessionTransport) Done() <-chan struct{} { return st.done }
func (st *SessionTransport) Stateless() bool { return st.stateless }

func (st *SessionTransport) Close() error {
	st.closeOnce.Do(func() {
		close(st.done)
		if st.writer != nil {
			st.writer.Dispose()
		}
	})
	return nil
}

func (st *SessionTransport) close() { _ = st.Close() }

// Receive implements transport.Transport by draining the fan-in inbound queue fed by HTTP
// POST bodies.
func (st *SessionTransport) Receive(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case m, ok := <-st.inbound:
		if !ok {
			return nil, fmt.Errorf("streamhttp: session transport closed")
		}
		return m, nil
	case <-st.done:
		return nil, fmt.Errorf("streamhttp: session transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (st *SessionTransport) deliverInbound(m jsonrpc.Message) {
	select {
	case st.inbound <- m:
	case <-st.done:
	}
}

// Send implements transport.Transport. A message correlated to an open request pipe (the
// terminal Response/Error matching that request's own id) is routed there first. Otherwise, if
// ctx is bound to an in-flight request with an open pipe (a notification or nested server->client
// request written while that request's handler is still running), it rides the same pipe, per
// SPEC_FULL.md §4.3 invariant A -- interleaved messages stream back on the same POST response
// body as the eventual terminal response. Anything left over is unsolicited and is appended to
// the session's event store (and dropped if no GET is currently active and the store is
// unavailable -- documented lossy behavior per SPEC_FULL.md §5).
func (st *SessionTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	pipeID, hasPipeID := correlatedID(msg)
	if !hasPipeID {
		pipeID, hasPipeID = transport.RequestIDFromContext(ctx)
	}
	if hasPipeID {
		st.mu.Lock()
		pipe, ok := st.reqPipes[pipeID.String()]
		st.mu.Unlock()
		if ok {
			select {
			case pipe <- msg:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-st.done:
				return fmt.Errorf("streamhttp: session closed")
			}
		}
	}
	if st.stateless {
		return fmt.Errorf("streamhttp: server-initiated messages are forbidden in stateless mode")
	}
	_, err := st.writer.Write(ssestore.Item{Data: msg})
	return err
}

func correlatedID(msg jsonrpc.Message) (jsonrpc.RequestID, bool) {
	switch m := msg.(type) {
	case *jsonrpc.Response:
		return m.ID, true
	case *jsonrpc.ErrorResponse:
		return m.ID, true
	default:
		return jsonrpc.RequestID{}, false
	}
}

// openRequestPipe registers a fresh pipe for the lifetime of one POST response body. Send routes
// the eventual terminal response here by its own id, and also routes any notification or nested
// server->client request written while id's handler is still running (via the context binding
// session.handleRequest installs), so progress notifications and similar interleaved messages
// ride the same body. A nested request's own correlated *response*, when it comes back, arrives
// on a fresh POST and is resolved through the session's pending-request map, not this pipe --
// matching SPEC_FULL.md's "responses whose correlation lives elsewhere" carve-out.
func (st *SessionTransport) openRequestPipe(id jsonrpc.RequestID) chan jsonrpc.Message {
	pipe := make(chan jsonrpc.Message, 16)
	st.mu.Lock()
	st.reqPipes[id.String()] = pipe
	st.mu.Unlock()
	return pipe
}

func (st *SessionTransport) closeRequestPipe(id jsonrpc.RequestID) {
	st.mu.Lock()
	delete(st.reqPipes, id.String())
	st.mu.Unlock()
}

func (st *SessionTransport) tryAcquireGET() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.getActive {
		return false
	}
	st.getActive = true
	return true
}

func (st *SessionTransport) releaseGET() {
	st.mu.Lock()
	st.getActive = false
	st.mu.Unlock()
}

func (st *SessionTransport) unsolicitedReader(lastEventID string) (ssestore.Reader, bool) {
	return st.store.GetReader(st.sessionID, "unsolicited", lastEventID)
}
