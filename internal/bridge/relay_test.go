package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
)

// captureSink collects replies pushed onto the fallback path.
type captureSink struct {
	ch chan Response
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan Response, 4)}
}

func (c *captureSink) post(resp Response) error {
	c.ch <- resp
	return nil
}

func (c *captureSink) wait(t *testing.T) Response {
	t.Helper()
	select {
	case resp := <-c.ch:
		return resp
	case <-time.After(time.Second):
		t.Fatal("no fallback reply delivered")
		return Response{}
	}
}

func handleRequest(t *testing.T, r *Relay, req Request) Response {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	out, err := r.handle(gson.New(string(raw)))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out.(string)), &resp))
	return resp
}

func TestHandleDeliversReplyOnBothPaths(t *testing.T) {
	d := NewDispatcher(nil)
	d.Handle("ping", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return map[string]string{"pong": "yes"}, nil
	})

	sink := newCaptureSink()
	r := &Relay{dispatcher: d, post: sink.post}

	direct := handleRequest(t, r, Request{Type: OpRuntimeSend, Action: "ping", RequestID: "id-1"})
	assert.Equal(t, ReplyType("id-1"), direct.Type)
	assert.JSONEq(t, `{"pong":"yes"}`, string(direct.Data))

	fallback := sink.wait(t)
	assert.Equal(t, direct.Type, fallback.Type, "fallback carries the same tagged reply")
	assert.JSONEq(t, string(direct.Data), string(fallback.Data))
}

func TestHandleBroadcastsErrorReplies(t *testing.T) {
	d := NewDispatcher(nil)

	sink := newCaptureSink()
	r := &Relay{dispatcher: d, post: sink.post}

	direct := handleRequest(t, r, Request{Type: OpRuntimeSend, Action: "missing", RequestID: "id-1"})
	assert.Contains(t, direct.Error, "unknown action")

	fallback := sink.wait(t)
	assert.Equal(t, direct.Error, fallback.Error)
}

func TestHandleIgnoresForeignTraffic(t *testing.T) {
	sink := newCaptureSink()
	r := &Relay{dispatcher: NewDispatcher(nil), post: sink.post}

	raw, err := json.Marshal(Request{Type: "SOMETHING_ELSE", RequestID: "x"})
	require.NoError(t, err)

	out, err := r.handle(gson.New(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "{}", out)

	select {
	case <-sink.ch:
		t.Fatal("foreign traffic must not be broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDualPathSettlesCallerOnce(t *testing.T) {
	// End to end over the registry: both delivery paths race and the caller
	// observes exactly one outcome.
	d := NewDispatcher(nil)
	d.Handle("ping", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return map[string]bool{"ok": true}, nil
	})

	reg := NewRegistry()
	r := &Relay{dispatcher: d}
	r.post = func(resp Response) error {
		if id, ok := ParseReplyID(resp.Type); ok {
			reg.Settle(id, resp.Data, resp.Error)
		}
		return nil
	}

	id := NewRequestID()
	ch := reg.Register(id)

	direct := handleRequest(t, r, Request{Type: OpRuntimeSend, Action: "ping", RequestID: id})
	settledDirect := reg.Settle(id, direct.Data, direct.Error)

	o := <-ch
	require.NoError(t, o.err)
	assert.JSONEq(t, `{"ok":true}`, string(o.data))

	// Whichever path lost the race settled nothing.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, reg.Pending())
	if settledDirect {
		assert.False(t, reg.Settle(id, nil, ""), "second path must be a no-op")
	}
}

func TestBroadcastUsesDeliveryPath(t *testing.T) {
	sink := newCaptureSink()
	r := &Relay{post: sink.post}

	require.NoError(t, r.Broadcast("id-9", map[string]int{"n": 1}, ""))

	resp := sink.wait(t)
	assert.Equal(t, ReplyType("id-9"), resp.Type)
	assert.JSONEq(t, `{"n":1}`, string(resp.Data))
	assert.Empty(t, resp.Error)
}
