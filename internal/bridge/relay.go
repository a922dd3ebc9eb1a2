package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"github.com/commentron/commentron/internal/logger"
)

// bindingName is the Go function exposed into every page the relay serves.
const bindingName = "__commentronDispatch"

// relayScript listens for request envelopes posted by page scripts, forwards
// them over the exposed binding and re-posts the reply tagged with the
// originating request id. Replies are filtered out up front so the relay
// never loops on its own traffic.
const relayScript = `
window.addEventListener('message', (ev) => {
	const d = ev.data;
	if (!d || typeof d.type !== 'string' || !d.type.startsWith('COMMENTRON_')) return;
	if (d.type.startsWith('COMMENTRON_BRIDGE_RESULT_')) return;
	if (!d.requestId) return;
	window.` + bindingName + `(JSON.stringify(d)).then((raw) => {
		const res = JSON.parse(raw);
		window.postMessage(res, '*');
	}).catch((err) => {
		window.postMessage({
			type: 'COMMENTRON_BRIDGE_RESULT_' + d.requestId,
			error: String(err),
		}, '*');
	});
});
`

// Relay serves bridge traffic for one page.
type Relay struct {
	page       *rod.Page
	dispatcher *Dispatcher
	stop       func() error

	// post pushes a reply envelope into the page. Split out so the fallback
	// delivery path is testable without a browser.
	post func(Response) error
}

// InstallRelay exposes the dispatcher into a page and injects the listener
// script. Must be called before the page scripts that rely on it run.
func InstallRelay(page *rod.Page, d *Dispatcher) (*Relay, error) {
	r := &Relay{page: page, dispatcher: d}
	r.post = r.postToPage

	stop, err := page.Expose(bindingName, r.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to expose bridge binding: %w", err)
	}
	r.stop = stop

	if _, err := page.EvalOnNewDocument(relayScript); err != nil {
		return nil, fmt.Errorf("failed to install relay script: %w", err)
	}
	// Cover the already-loaded document too.
	if _, err := page.Eval(`() => {` + relayScript + `}`); err != nil {
		logger.Debug("relay script eval on current document failed", "error", err)
	}

	return r, nil
}

func (r *Relay) handle(arg gson.JSON) (interface{}, error) {
	var req Request
	if err := json.Unmarshal([]byte(arg.Str()), &req); err != nil {
		return nil, fmt.Errorf("malformed bridge request: %w", err)
	}

	resp, ok := r.dispatcher.Dispatch(context.Background(), req)
	if !ok {
		// Not ours; resolve with an ignorable empty reply.
		return "{}", nil
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bridge reply: %w", err)
	}

	// Fallback delivery: push the same tagged reply straight into the page
	// as well. A dropped binding promise still gets its reply this way, and
	// the page-side one-shot listeners plus the settle-once registry make
	// the duplicate harmless.
	go func() {
		if err := r.post(resp); err != nil {
			logger.Debug("fallback reply delivery failed", "request_id", req.RequestID, "error", err)
		}
	}()

	return string(raw), nil
}

// postToPage delivers a reply envelope by posting it as a window message.
func (r *Relay) postToPage(resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	if _, err := r.page.Eval(`(msg) => window.postMessage(JSON.parse(msg), '*')`, string(raw)); err != nil {
		return fmt.Errorf("failed to post reply into page: %w", err)
	}
	return nil
}

// Broadcast pushes a reply into the page, bypassing the binding callback.
// Used for replies originating outside a binding call.
func (r *Relay) Broadcast(requestID string, data any, errMsg string) error {
	resp := Response{Type: ReplyType(requestID), Error: errMsg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal broadcast data: %w", err)
		}
		resp.Data = raw
	}
	return r.post(resp)
}

// Close removes the exposed binding.
func (r *Relay) Close() error {
	if r.stop != nil {
		return r.stop()
	}
	return nil
}
