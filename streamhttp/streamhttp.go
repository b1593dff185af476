// Package streamhttp implements the Streamable HTTP transport of SPEC_FULL.md §4.3: POST/GET/
// DELETE /mcp bound to the transport.Transport abstraction, per-request SSE pipes, the
// per-session unsolicited-message pipe, and stateless-mode restrictions. Handler dispatches on
// the HTTP method with a plain switch; request logging, metrics and shutdown tracking are
// separate net/http middlewares that cmd/mcpserver wraps around it. Handler does not recover
// panics raised while serving a request. SSE framing and per-request locking follow from
// SPEC_FULL.md §4.3/§5 and have no teacher analogue (the teacher's HTTP surface was REST+ETag,
// not JSON-RPC+SSE).
package streamhttp

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/ssestore"
)

const SessionHeader = "mcp-session-id"
const LastEventIDHeader = "Last-Event-ID"

// SessionFactory creates a new logical session (wiring handlers, capabilities, etc.) the first
// time a client POSTs an initialize request, and returns the opaque session object. Handler
// does not use this type: its NewSession field has its own signature.
type SessionFactory func(ctx context.Context) any

// Handler implements the three Streamable HTTP surfaces over one EventStore and a registry of
// live per-session transports.
type Handler struct {
	Store      ssestore.EventStore
	Logger     *slog.Logger
	Stateless  bool
	NewSession func(ctx context.Context, sessionID string) *SessionTransport

	mu       sync.Mutex
	sessions map[string]*SessionTransport
}

// NewHandler constructs a Handler. NewSession is invoked exactly once per session, on the
// first POST carrying an initialize request (or immediately, in stateless mode).
func NewHandler(store ssestore.EventStore, logger *slog.Logger, stateless bool, newSession func(ctx context.Context, sessionID string) *SessionTransport) *Handler {
	return &Handler{Store: store, Logger: logger, Stateless: stateless, NewSession: newSession, sessions: make(map[string]*SessionTransport)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.servePost(w, r)
	case http.MethodGet:
		h.serveGet(w, r)
	case http.MethodDelete:
		h.serveDelete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) lookup(sessionID string) (*SessionTransport, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.sessions[sessionID]
	return st, ok
}

func (h *Handler) register(st *SessionTransport) {
	h.mu.Lock()
	h.sessions[st.sessionID] = st
	h.mu.Unlock()
}

func (h *Handler) unregister(sessionID string) {
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
}

func (h *Handler) servePost(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	body, err := jsonrpc.Decode(raw)
	if err != nil {
		writeJSONRPCError(w, err)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	var st *SessionTransport

	if sessionID == "" {
		if h.Stateless {
			sessionID = uuid.NewString()
			st = h.NewSession(r.Context(), sessionID)
		} else if req, ok := body.(*jsonrpc.Request); ok && req.Method == "initialize" {
			sessionID = uuid.NewString()
			st = h.NewSession(r.Context(), sessionID)
			h.register(st)
		} else {
			http.Error(w, "missing "+SessionHeader, http.StatusBadRequest)
			return
		}
	} else {
		var ok bool
		st, ok = h.lookup(sessionID)
		if !ok {
			http.Error(w, "session closed or unknown", http.StatusNotFound)
			return
		}
	}

	if !h.Stateless {
		w.Header().Set(SessionHeader, sessionID)
	}

	switch m := body.(type) {
	case *jsonrpc.Notification, *jsonrpc.Response, *jsonrpc.ErrorResponse:
		st.deliverInbound(m.(jsonrpc.Message))
		w.WriteHeader(http.StatusAccepted)
		return
	case *jsonrpc.Request:
		h.servePostRequest(w, r, st, m)
	}
}

// servePostRequest opens an SSE body, delivers the request to the session, and streams back
// every message the handler writes to this request's pipe until the terminal response with
// matching id is observed, per SPEC_FULL.md §4.3 invariant A.
func (h *Handler) servePostRequest(w http.ResponseWriter, r *http.Request, st *SessionTransport, req *jsonrpc.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	pipe := st.openRequestPipe(req.ID)
	defer st.closeRequestPipe(req.ID)

	st.deliverInbound(req)

	for {
		select {
		case msg, ok := <-pipe:
			if !ok {
				return
			}
			writeSSEMessage(w, msg)
			flusher.Flush()
			if isTerminalFor(msg, req.ID) {
				return
			}
		case <-r.Context().Done():
			return
		case <-st.done:
			return
		}
	}
}

func isTerminalFor(msg jsonrpc.Message, id jsonrpc.RequestID) bool {
	switch m := msg.(type) {
	case *jsonrpc.Response:
		return m.ID.Equal(id)
	case *jsonrpc.ErrorResponse:
		return m.ID.Equal(id)
	default:
		return false
	}
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request) {
	if h.Stateless {
		http.Error(w, "GET is forbidden in stateless mode", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.Header.Get(SessionHeader)
	st, ok := h.lookup(sessionID)
	if !ok {
		http.Error(w, "session closed or unknown", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	if !st.tryAcquireGET() {
		http.Error(w, "a GET stream is already active for this session", http.StatusConflict)
		return
	}
	defer st.releaseGET()

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)

	lastEventID := r.Header.Get(LastEventIDHeader)
	reader, ok := st.unsolicitedReader(lastEventID)
	if !ok {
		fmt.Fprintf(w, "event: error\ndata: {\"error\":\"unknown or expired Last-Event-ID\"}\n\n")
		flusher.Flush()
		return
	}

	for item := range reader.Events(r.Context()) {
		writeSSEItem(w, item)
		flusher.Flush()
	}
}

func (h *Handler) serveDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionHeader)
	st, ok := h.lookup(sessionID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	st.close()
	h.unregister(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func writeSSEMessage(w http.ResponseWriter, msg jsonrpc.Message) {
	data, err := jsonrpc.Encode(msg)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeSSEItem(w http.ResponseWriter, item ssestore.Item) {
	if item.ID != "" {
		fmt.Fprintf(w, "id: %s\n", item.ID)
	}
	if item.ReconnectionInterval != nil {
		fmt.Fprintf(w, "retry: %s\n", strconv.FormatInt(*item.ReconnectionInterval, 10))
	}
	if item.Data == nil {
		fmt.Fprintf(w, "data: \n\n")
		return
	}
	data, err := jsonrpc.Encode(item.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSONRPCError(w http.ResponseWriter, err error) {
	rpcErr, ok := err.(*jsonrpc.Error)
	if !ok {
		rpcErr = &jsonrpc.Error{Code: jsonrpc.CodeParseError, Message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	body, _ := json.Marshal(struct {
		JSONRPC string        `json:"jsonrpc"`
		ID      any           `json:"id"`
		Error   *jsonrpc.Error `json:"error"`
	}{jsonrpc.Version, nil, rpcErr})
	w.Write(body)
}
