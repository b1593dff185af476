// Package transport defines the bidirectional message channel abstraction the session owns,
// per SPEC_FULL.md's "Transport abstraction" component. Streamable HTTP (package streamhttp)
// is the one concrete implementation; the interface exists so the session and server-role code
// never depend on HTTP, SSE, or any other wire framing directly.
package transport

import (
	"context"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
)

// Transport is a bidirectional, session-scoped message channel. A Transport owns exactly one
// event-stream writer per logical stream it exposes; the session exclusively owns the Transport.
type Transport interface {
	// SessionID returns the identity of the session this transport carries, or "" before one
	// has been assigned (e.g. prior to the initialize response in non-stateless mode).
	SessionID() string

	// Send writes an outbound message. Implementations decide which physical stream (a POST
	// response body, the long-lived GET body, or none in stateless+no-active-stream cases)
	// carries it; Send may block until the message is flushed or the context is cancelled.
	Send(ctx context.Context, msg jsonrpc.Message) error

	// Receive blocks until the next inbound message arrives, the transport closes, or ctx is
	// cancelled. Implementations that multiplex several physical connections (POST + GET) fan
	// inbound messages from all of them into this single method.
	Receive(ctx context.Context) (jsonrpc.Message, error)

	// Close disposes the transport. Closing an already-closed transport is a no-op.
	Close() error

	// Done returns a channel closed when the transport is no longer usable (peer disconnect,
	// explicit Close, or fatal write error). The session uses this to cascade a session-wide
	// cancellation token, per SPEC_FULL.md §5.
	Done() <-chan struct{}
}

// StatelessTransport is implemented by transports that operate in stateless mode: server-
// initiated requests and unsolicited notifications are structurally impossible to deliver
// (there is no long-lived GET stream), so Send on such a message must fail fast instead of
// blocking forever.
type StatelessTransport interface {
	Transport
	Stateless() bool
}

type requestIDCtxKey struct{}

// WithRequestID binds id to ctx as "the inbound request this handler is currently processing."
// session.handleRequest sets this on the context passed to a request handler so that a Transport's
// Send can route handler-emitted notifications and nested server->client requests onto the same
// physical stream the originating request arrived on (SPEC_FULL.md §4.3 invariant A: interleaved
// messages ride the same POST response body as the eventual terminal response).
func WithRequestID(ctx context.Context, id jsonrpc.RequestID) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFromContext returns the id bound by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) (jsonrpc.RequestID, bool) {
	id, ok := ctx.Value(requestIDCtxKey{}).(jsonrpc.RequestID)
	return id, ok
}
