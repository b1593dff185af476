// Package ssestore implements the event-stream store abstraction of SPEC_FULL.md §4.4: a
// per-session, per-stream append log of SSE items enabling replay-from-last-id on reconnect.
// The in-memory implementation is grounded on the teacher's ratecounter/throttling policies'
// use of a mutex-guarded ring-like slice (svrcore/policies/ratecounter.go) for the same
// "bounded append log with a moving window" shape, adapted here to support arbitrary Last-
// Event-ID replay rather than only recent-window queries.
package ssestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
)

// Mode selects how a Reader's Events sequence behaves once it has drained the backlog.
type Mode int

const (
	// Streaming readers continue receiving new items as they are written, until the writer
	// is disposed.
	Streaming Mode = iota
	// Polling readers emit only the currently available backlog and then end, forcing the
	// client to reconnect (used as a backpressure mechanism per SPEC_FULL.md §4.3).
	Polling
)

// Item is one entry in an event stream: an id assigned by the store, an optional
// reconnection-interval hint (carried on priming items), and an optional JSON-RPC message.
// A nil Data item is a "prime" event with no payload.
type Item struct {
	ID                  string
	ReconnectionInterval *int64 // milliseconds
	Data                jsonrpc.Message
}

// EventStore is the append-log abstraction shared by every stream in the runtime.
type EventStore interface {
	// CreateStream allocates (or returns the existing) writer for sessionID/streamID.
	CreateStream(sessionID, streamID string, mode Mode) (Writer, error)
	// GetReader returns a Reader positioned strictly after lastEventID, or ok=false if
	// lastEventID is unknown or has been truncated out of the backlog.
	GetReader(sessionID, streamID, lastEventID string) (reader Reader, ok bool)
}

// Writer is the append side of one stream.
type Writer interface {
	// SetMode changes the stream's mode prospectively; existing readers are unaffected.
	SetMode(mode Mode)
	// Write appends item. If item.ID == "", the store assigns a unique, monotonically
	// increasing id and returns the stamped copy; a non-empty id is returned unchanged,
	// making re-delivery of an already-ID'd item idempotent.
	Write(item Item) (Item, error)
	// Dispose ends the stream; idempotent. Streaming readers observe end-of-sequence.
	Dispose()
}

// Reader is the consume side of one stream, positioned at a specific replay point.
type Reader interface {
	SessionID() string
	StreamID() string
	// Events returns a channel of items with id > the reader's position, in order. In
	// Polling mode the channel closes after the backlog drains; in Streaming mode it stays
	// open until the writer is disposed or ctx is cancelled.
	Events(ctx context.Context) <-chan Item
}

// seqItem pairs a published Item with the monotonic sequence number it was assigned at, so a
// Reader can track "everything after seq N" independent of the backing slice's indices -- those
// shift every time Write front-drops the oldest entries to respect backlogCap.
type seqItem struct {
	seq  uint64
	item Item
}

type memStream struct {
	mu       sync.Mutex
	mode     Mode
	items    []seqItem // ordered, oldest first
	seq      uint64
	disposed bool
	waiters  []chan struct{} // signaled on Write or Dispose
	backlogCap int
}

func (s *memStream) broadcast() {
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

// Store is the in-memory EventStore implementation. Production deployments needing durability
// across process restarts must supply their own EventStore; the core only mandates the
// interface (SPEC_FULL.md Non-goals).
type Store struct {
	mu         sync.Mutex
	streams    map[string]*memStream // key: sessionID + "/" + streamID
	backlogCap int
}

// NewStore returns an in-memory EventStore. backlogCap bounds how many items each stream
// retains before dropping the oldest (0 means unbounded).
func NewStore(backlogCap int) *Store {
	return &Store{streams: make(map[string]*memStream), backlogCap: backlogCap}
}

func key(sessionID, streamID string) string { return sessionID + "/" + streamID }

func (st *Store) CreateStream(sessionID, streamID string, mode Mode) (Writer, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	k := key(sessionID, streamID)
	s, ok := st.streams[k]
	if !ok {
		s = &memStream{mode: mode, backlogCap: st.backlogCap}
		st.streams[k] = s
	} else {
		s.mu.Lock()
		s.mode = mode
		s.mu.Unlock()
	}
	return &writer{store: st, key: k, stream: s}, nil
}

func (st *Store) GetReader(sessionID, streamID, lastEventID string) (Reader, bool) {
	st.mu.Lock()
	s, ok := st.streams[key(sessionID, streamID)]
	st.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	afterSeq := uint64(0)
	if lastEventID != "" {
		found := false
		for _, si := range s.items {
			if si.item.ID == lastEventID {
				afterSeq = si.seq
				found = true
				break
			}
		}
		if !found {
			return nil, false // unknown or truncated id
		}
	}
	return &reader{sessionID: sessionID, streamID: streamID, stream: s, afterSeq: afterSeq}, true
}

type writer struct {
	store  *Store
	key    string
	stream *memStream
}

func (w *writer) SetMode(mode Mode) {
	w.stream.mu.Lock()
	w.stream.mode = mode
	w.stream.mu.Unlock()
}

func (w *writer) Write(item Item) (Item, error) {
	s := w.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return Item{}, fmt.Errorf("ssestore: write to disposed stream")
	}
	if item.ID != "" {
		for _, si := range s.items {
			if si.item.ID == item.ID {
				return item, nil // already stored: re-delivery appends nothing
			}
		}
	}
	s.seq++
	if item.ID == "" {
		// Prefix with the stream's key (session+streamID) so ids stay unique across the whole
		// store's address space, not just within this one stream (SPEC_FULL.md §3/§4.4).
		item.ID = fmt.Sprintf("%s-%d", w.key, s.seq)
	}
	s.items = append(s.items, seqItem{seq: s.seq, item: item})
	if s.backlogCap > 0 && len(s.items) > s.backlogCap {
		s.items = s.items[len(s.items)-s.backlogCap:]
	}
	s.broadcast()
	return item, nil
}

func (w *writer) Dispose() {
	s := w.stream
	s.mu.Lock()
	if !s.disposed {
		s.disposed = true
		s.broadcast()
	}
	s.mu.Unlock()
}

type reader struct {
	sessionID, streamID string
	stream              *memStream
	afterSeq            uint64 // last-consumed sequence number; next batch is everything > this
}

func (r *reader) SessionID() string { return r.sessionID }
func (r *reader) StreamID() string  { return r.streamID }

func (r *reader) Events(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for {
			r.stream.mu.Lock()
			var batch []Item
			for _, si := range r.stream.items {
				if si.seq > r.afterSeq {
					batch = append(batch, si.item)
					r.afterSeq = si.seq
				}
			}
			mode := r.stream.mode
			disposed := r.stream.disposed
			var wait chan struct{}
			if len(batch) == 0 && !disposed && mode == Streaming {
				wait = make(chan struct{})
				r.stream.waiters = append(r.stream.waiters, wait)
			}
			r.stream.mu.Unlock()

			for _, it := range batch {
				select {
				case out <- it:
				case <-ctx.Done():
					return
				}
			}
			if len(batch) > 0 {
				continue
			}
			if disposed || mode == Polling {
				return
			}
			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
