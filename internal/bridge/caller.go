package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/commentron/commentron/internal/logger"
)

// Call timeouts by class. Generation calls wait on a remote LLM and get the
// long deadline; everything else fails fast.
const (
	DefaultTimeout    = 30 * time.Second
	GenerationTimeout = 90 * time.Second
)

// Transport posts a request envelope toward the dispatcher. Delivery is
// asynchronous; the reply comes back through the caller's registry.
type Transport interface {
	Post(req Request) error
}

// Caller is the client side of the bridge: it generates request ids,
// registers a pending slot, posts the envelope and waits for the first
// matching reply or a timeout.
type Caller struct {
	reg       *Registry
	transport Transport
}

// NewCaller wires a caller to a transport.
func NewCaller(t Transport) *Caller {
	return &Caller{reg: NewRegistry(), transport: t}
}

// Registry exposes the pending registry so transports can settle replies.
func (c *Caller) Registry() *Registry {
	return c.reg
}

// Call sends a runtime message and waits for its reply. The deadline comes
// from the action's timeout class. Payload is marshaled as the envelope
// payload; the reply data is returned raw for the caller to decode.
func (c *Caller) Call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	return c.call(ctx, action, payload, timeoutFor(action))
}

func (c *Caller) call(ctx context.Context, action string, payload any, timeout time.Duration) (json.RawMessage, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = data
	}

	id := NewRequestID()
	ch := c.reg.Register(id)

	req := Request{
		Type:      OpRuntimeSend,
		Action:    action,
		Payload:   raw,
		RequestID: id,
	}

	if err := c.transport.Post(req); err != nil {
		c.reg.Drop(id)
		return nil, fmt.Errorf("failed to post request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		return o.data, nil
	case <-timer.C:
		c.reg.Drop(id)
		logger.Warn("bridge call timed out", "action", action, "request_id", id, "timeout", timeout)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, action, timeout)
	case <-ctx.Done():
		c.reg.Drop(id)
		return nil, ctx.Err()
	}
}

func timeoutFor(action string) time.Duration {
	switch action {
	case ActionGenerateAIComment, ActionGenerateFromContent:
		return GenerationTimeout
	default:
		return DefaultTimeout
	}
}
