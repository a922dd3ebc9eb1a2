package bridge

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySettleDeliversData(t *testing.T) {
	r := NewRegistry()
	ch := r.Register("req-1")

	ok := r.Settle("req-1", json.RawMessage(`{"x":1}`), "")
	require.True(t, ok)

	o := <-ch
	require.NoError(t, o.err)
	assert.JSONEq(t, `{"x":1}`, string(o.data))
	assert.Equal(t, 0, r.Pending())
}

func TestRegistrySettleDeliversError(t *testing.T) {
	r := NewRegistry()
	ch := r.Register("req-1")

	require.True(t, r.Settle("req-1", nil, "generation failed"))

	o := <-ch
	require.Error(t, o.err)
	assert.Equal(t, "generation failed", o.err.Error())
}

func TestRegistrySettleOnlyOnce(t *testing.T) {
	r := NewRegistry()
	ch := r.Register("req-1")

	assert.True(t, r.Settle("req-1", json.RawMessage(`"first"`), ""))
	assert.False(t, r.Settle("req-1", json.RawMessage(`"second"`), ""))

	o := <-ch
	assert.Equal(t, `"first"`, string(o.data))

	select {
	case <-ch:
		t.Fatal("second settle must not deliver")
	default:
	}
}

func TestRegistrySettleUnknownID(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Settle("never-registered", nil, ""))
}

func TestRegistryDropPreventsSettle(t *testing.T) {
	r := NewRegistry()
	r.Register("req-1")
	r.Drop("req-1")

	assert.False(t, r.Settle("req-1", nil, ""))
	assert.Equal(t, 0, r.Pending())
}

func TestRegistryConcurrentDualPathDelivery(t *testing.T) {
	// Both delivery paths race on every call; exactly one may win.
	r := NewRegistry()

	const calls = 100
	channels := make([]<-chan outcome, calls)
	ids := make([]string, calls)
	for i := range ids {
		ids[i] = NewRequestID()
		channels[i] = r.Register(ids[i])
	}

	var wg sync.WaitGroup
	wins := make(chan bool, calls*2)
	for _, id := range ids {
		for _, path := range []string{`"direct"`, `"broadcast"`} {
			wg.Add(1)
			go func(id, data string) {
				defer wg.Done()
				wins <- r.Settle(id, json.RawMessage(data), "")
			}(id, path)
		}
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	assert.Equal(t, calls, won, "each call settles exactly once")

	for _, ch := range channels {
		o := <-ch
		require.NoError(t, o.err)
	}
	assert.Equal(t, 0, r.Pending())
}
