package bridge

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrTimeout is returned when no reply arrives within the call's deadline.
var ErrTimeout = errors.New("bridge call timed out")

type outcome struct {
	data json.RawMessage
	err  error
}

type pendingCall struct {
	ch   chan outcome
	once sync.Once
}

func (p *pendingCall) settle(o outcome) bool {
	settled := false
	p.once.Do(func() {
		p.ch <- o
		settled = true
	})
	return settled
}

// Registry tracks in-flight calls keyed by request id. Both delivery paths
// funnel into Settle; whichever arrives first wins, the second is a no-op,
// and ids that were never registered (or already settled and removed) settle
// nothing.
type Registry struct {
	mu    sync.Mutex
	calls map[string]*pendingCall
}

// NewRegistry returns an empty pending-call registry.
func NewRegistry() *Registry {
	return &Registry{calls: make(map[string]*pendingCall)}
}

// Register creates a pending slot for a request id and returns the channel
// its outcome will be delivered on. The channel is buffered so a late settle
// never blocks the transport.
func (r *Registry) Register(id string) <-chan outcome {
	call := &pendingCall{ch: make(chan outcome, 1)}
	r.mu.Lock()
	r.calls[id] = call
	r.mu.Unlock()
	return call.ch
}

// Settle resolves the pending call for id, with data on success or errMsg on
// failure. Returns false when the id is unknown or the call was already
// settled.
func (r *Registry) Settle(id string, data json.RawMessage, errMsg string) bool {
	r.mu.Lock()
	call, ok := r.calls[id]
	if ok {
		delete(r.calls, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	o := outcome{data: data}
	if errMsg != "" {
		o = outcome{err: errors.New(errMsg)}
	}
	return call.settle(o)
}

// Drop removes a pending call without settling it (timeout path).
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.calls, id)
	r.mu.Unlock()
}

// Pending returns the number of in-flight calls.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
