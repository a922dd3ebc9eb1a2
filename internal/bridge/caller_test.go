package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyTransport settles each posted request with a canned outcome.
type replyTransport struct {
	reg    *Registry
	data   json.RawMessage
	errMsg string
	silent bool

	posted []Request
}

func (tr *replyTransport) Post(req Request) error {
	tr.posted = append(tr.posted, req)
	if tr.silent {
		return nil
	}
	go tr.reg.Settle(req.RequestID, tr.data, tr.errMsg)
	return nil
}

func TestCallerRoundTrip(t *testing.T) {
	tr := &replyTransport{data: json.RawMessage(`{"text":"hi"}`)}
	c := NewCaller(tr)
	tr.reg = c.Registry()

	data, err := c.Call(context.Background(), ActionGetCommentSettings, map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(data))

	require.Len(t, tr.posted, 1)
	req := tr.posted[0]
	assert.Equal(t, OpRuntimeSend, req.Type)
	assert.Equal(t, ActionGetCommentSettings, req.Action)
	assert.NotEmpty(t, req.RequestID)
	assert.JSONEq(t, `{"k":"v"}`, string(req.Payload))
}

func TestCallerErrorReply(t *testing.T) {
	tr := &replyTransport{errMsg: "unknown action: nope"}
	c := NewCaller(tr)
	tr.reg = c.Registry()

	_, err := c.Call(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestCallerTimeout(t *testing.T) {
	tr := &replyTransport{silent: true}
	c := NewCaller(tr)
	tr.reg = c.Registry()

	_, err := c.call(context.Background(), ActionCheckDailyLimit, nil, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, c.Registry().Pending(), "timed-out call must not leak a pending slot")
}

func TestCallerContextCancel(t *testing.T) {
	tr := &replyTransport{silent: true}
	c := NewCaller(tr)
	tr.reg = c.Registry()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.Call(ctx, ActionCheckDailyLimit, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Registry().Pending())
}

func TestTimeoutClassByAction(t *testing.T) {
	assert.Equal(t, GenerationTimeout, timeoutFor(ActionGenerateAIComment))
	assert.Equal(t, GenerationTimeout, timeoutFor(ActionGenerateFromContent))
	assert.Equal(t, DefaultTimeout, timeoutFor(ActionCheckDailyLimit))
	assert.Equal(t, DefaultTimeout, timeoutFor("anythingElse"))
}
