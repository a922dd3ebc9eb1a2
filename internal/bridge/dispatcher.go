package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/commentron/commentron/internal/logger"
)

// StateStore is the persistent key/value surface the storage ops touch.
type StateStore interface {
	GetValue(ctx context.Context, key string) (json.RawMessage, error)
	SetValue(ctx context.Context, key string, value json.RawMessage) error
}

// HandlerFunc serves one runtime-message action.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Dispatcher routes request envelopes: storage ops to the StateStore,
// runtime messages to registered action handlers. It holds no per-call
// state; failure turns into an {error} reply and the caller decides what to
// do with it.
type Dispatcher struct {
	mu      sync.RWMutex
	actions map[string]HandlerFunc
	store   StateStore
}

// NewDispatcher returns a dispatcher backed by the given store.
func NewDispatcher(store StateStore) *Dispatcher {
	return &Dispatcher{
		actions: make(map[string]HandlerFunc),
		store:   store,
	}
}

// Handle registers a handler for an action, replacing any previous one.
func (d *Dispatcher) Handle(action string, fn HandlerFunc) {
	d.mu.Lock()
	d.actions[action] = fn
	d.mu.Unlock()
}

// Dispatch serves one request and builds its tagged reply. Requests outside
// the protocol, and replies, yield ok=false and must be ignored by the
// transport.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, bool) {
	if !IsBridgeMessage(req.Type) {
		return Response{}, false
	}
	if _, isReply := ParseReplyID(req.Type); isReply {
		return Response{}, false
	}

	resp := Response{Type: ReplyType(req.RequestID)}

	data, err := d.serve(ctx, req)
	if err != nil {
		logger.Debug("bridge dispatch failed", "type", req.Type, "action", req.Action, "error", err)
		resp.Error = err.Error()
		return resp, true
	}

	raw, err := json.Marshal(data)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to encode reply: %v", err)
		return resp, true
	}
	resp.Data = raw
	return resp, true
}

func (d *Dispatcher) serve(ctx context.Context, req Request) (any, error) {
	switch req.Type {
	case OpGetStorage:
		if d.store == nil {
			return nil, fmt.Errorf("no state store configured")
		}
		return d.store.GetValue(ctx, req.Key)

	case OpSetStorage:
		if d.store == nil {
			return nil, fmt.Errorf("no state store configured")
		}
		if err := d.store.SetValue(ctx, req.Key, req.Value); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil

	case OpRuntimeSend:
		d.mu.RLock()
		fn, ok := d.actions[req.Action]
		d.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown action: %s", req.Action)
		}
		return fn(ctx, req.Payload)

	default:
		return nil, fmt.Errorf("unknown message type: %s", req.Type)
	}
}

// Loopback is the in-process transport: it dispatches requests on a
// goroutine and settles the caller's registry with the reply, mirroring the
// asynchronous delivery the page relay has.
type Loopback struct {
	dispatcher *Dispatcher
	reg        *Registry
}

// Connect builds a caller whose requests are served in-process by d.
func Connect(d *Dispatcher) *Caller {
	lb := &Loopback{dispatcher: d}
	c := NewCaller(lb)
	lb.reg = c.Registry()
	return c
}

// Post implements Transport.
func (l *Loopback) Post(req Request) error {
	go func() {
		resp, ok := l.dispatcher.Dispatch(context.Background(), req)
		if !ok {
			return
		}
		l.reg.Settle(req.RequestID, resp.Data, resp.Error)
	}()
	return nil
}
