package ssestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
)

func drain(t *testing.T, ch <-chan Item, timeout time.Duration) []Item {
	t.Helper()
	var out []Item
	deadline := time.After(timeout)
	for {
		select {
		case it, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, it)
		case <-deadline:
			return out
		}
	}
}

func TestWriteAssignsMonotonicIDs(t *testing.T) {
	st := NewStore(0)
	w, err := st.CreateStream("sess-1", "unsolicited", Polling)
	require.NoError(t, err)

	a, err := w.Write(Item{Data: &jsonrpc.Notification{Method: "a"}})
	require.NoError(t, err)
	b, err := w.Write(Item{Data: &jsonrpc.Notification{Method: "b"}})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestPollingReaderDrainsThenEnds(t *testing.T) {
	st := NewStore(0)
	w, err := st.CreateStream("sess-1", "s", Polling)
	require.NoError(t, err)
	_, err = w.Write(Item{Data: &jsonrpc.Notification{Method: "a"}})
	require.NoError(t, err)
	_, err = w.Write(Item{Data: &jsonrpc.Notification{Method: "b"}})
	require.NoError(t, err)

	r, ok := st.GetReader("sess-1", "s", "")
	require.True(t, ok)
	items := drain(t, r.Events(context.Background()), time.Second)
	assert.Len(t, items, 2)
}

func TestStreamingReaderReceivesLiveWrites(t *testing.T) {
	st := NewStore(0)
	w, err := st.CreateStream("sess-1", "s", Streaming)
	require.NoError(t, err)

	r, ok := st.GetReader("sess-1", "s", "")
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ch := r.Events(ctx)

	_, err = w.Write(Item{Data: &jsonrpc.Notification{Method: "live"}})
	require.NoError(t, err)

	select {
	case it := <-ch:
		assert.Equal(t, &jsonrpc.Notification{Method: "live"}, it.Data)
	case <-time.After(time.Second):
		t.Fatal("did not receive live write")
	}

	w.Dispose()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "the channel must close once the writer is disposed")
	case <-time.After(time.Second):
		t.Fatal("channel did not close after dispose")
	}
}

func TestGetReaderReplaysAfterLastEventID(t *testing.T) {
	st := NewStore(0)
	w, err := st.CreateStream("sess-1", "s", Polling)
	require.NoError(t, err)
	first, err := w.Write(Item{Data: &jsonrpc.Notification{Method: "a"}})
	require.NoError(t, err)
	_, err = w.Write(Item{Data: &jsonrpc.Notification{Method: "b"}})
	require.NoError(t, err)

	r, ok := st.GetReader("sess-1", "s", first.ID)
	require.True(t, ok)
	items := drain(t, r.Events(context.Background()), time.Second)
	require.Len(t, items, 1)
	assert.Equal(t, &jsonrpc.Notification{Method: "b"}, items[0].Data)
}

func TestGetReaderRejectsUnknownLastEventID(t *testing.T) {
	st := NewStore(0)
	_, err := st.CreateStream("sess-1", "s", Polling)
	require.NoError(t, err)

	_, ok := st.GetReader("sess-1", "s", "does-not-exist")
	assert.False(t, ok)
}

func TestStreamingReaderSurvivesBacklogTruncation(t *testing.T) {
	st := NewStore(2)
	w, err := st.CreateStream("sess-1", "s", Streaming)
	require.NoError(t, err)

	r, ok := st.GetReader("sess-1", "s", "")
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ch := r.Events(ctx)

	first, err := w.Write(Item{Data: &jsonrpc.Notification{Method: "a"}})
	require.NoError(t, err)
	select {
	case it := <-ch:
		assert.Equal(t, first.ID, it.ID)
	case <-time.After(time.Second):
		t.Fatal("did not receive first write")
	}

	// These two writes push the backlog past its cap of 2, front-dropping "a" -- a reader
	// that already consumed it (tracked by sequence number, not a slice index) must still
	// receive exactly "b" and "c", not a misaligned or duplicated item.
	_, err = w.Write(Item{Data: &jsonrpc.Notification{Method: "b"}})
	require.NoError(t, err)
	_, err = w.Write(Item{Data: &jsonrpc.Notification{Method: "c"}})
	require.NoError(t, err)

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case it := <-ch:
			got = append(got, it.Data.(*jsonrpc.Notification).Method)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for item %d", i)
		}
	}
	assert.Equal(t, []string{"b", "c"}, got)
}

func TestBacklogCapDropsOldestItems(t *testing.T) {
	st := NewStore(2)
	w, err := st.CreateStream("sess-1", "s", Polling)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := w.Write(Item{Data: &jsonrpc.Notification{Method: "n"}})
		require.NoError(t, err)
	}

	r, ok := st.GetReader("sess-1", "s", "")
	require.True(t, ok)
	items := drain(t, r.Events(context.Background()), time.Second)
	assert.Len(t, items, 2, "only the backlog-capped tail should remain")
}
