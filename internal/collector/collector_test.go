package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed serves a scripted sequence of posts. After the sequence runs out
// it keeps returning repeat (nil by default, simulating an exhausted page).
type fakeFeed struct {
	posts   []*Post
	repeat  *Post
	idx     int
	scrolls int
	// heights is consumed one value per Height call; the last value sticks.
	heights []float64
	hIdx    int
	// growOnScroll appends fresh posts after each scroll.
	growOnScroll [][]*Post
	loadMoreHits int
}

func (f *fakeFeed) NextUnseen() (*Post, error) {
	if f.idx < len(f.posts) {
		p := f.posts[f.idx]
		f.idx++
		return p, nil
	}
	return f.repeat, nil
}

func (f *fakeFeed) ScrollToBottom() error {
	f.scrolls++
	if len(f.growOnScroll) > 0 {
		f.posts = append(f.posts, f.growOnScroll[0]...)
		f.growOnScroll = f.growOnScroll[1:]
	}
	return nil
}

func (f *fakeFeed) Height() (float64, error) {
	if f.hIdx < len(f.heights) {
		h := f.heights[f.hIdx]
		f.hIdx++
		return h, nil
	}
	if len(f.heights) > 0 {
		return f.heights[len(f.heights)-1], nil
	}
	return 1000, nil
}

func (f *fakeFeed) TryLoadMore() bool {
	f.loadMoreHits++
	return false
}

// fakeState is an in-memory run interlock.
type fakeState struct {
	activeID string
	active   bool
	saved    map[string][]string
	saveErr  error
}

func newFakeState(runID string) *fakeState {
	return &fakeState{activeID: runID, active: true, saved: make(map[string][]string)}
}

func (s *fakeState) ActiveRun() (string, bool, error) { return s.activeID, s.active, nil }

func (s *fakeState) SaveURNs(runID string, urns []string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[runID] = urns
	return nil
}

func post(urn string) *Post { return &Post{URN: urn} }

func instant(c *Collector) *Collector {
	c.sleep = func(time.Duration) {}
	return c
}

func TestRunStopsAtQuota(t *testing.T) {
	feed := &fakeFeed{posts: []*Post{post("urn:1"), post("urn:2"), post("urn:3"), post("urn:4")}}
	state := newFakeState("run-1")
	c := instant(New(feed, state, "run-1", Options{Quota: 3}))

	urns, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonQuotaMet, reason)
	assert.Equal(t, []string{"urn:1", "urn:2", "urn:3"}, urns)
	assert.Equal(t, []string{"urn:1", "urn:2", "urn:3"}, state.saved["run-1"], "quota completion must persist the list")
}

func TestRunEndOfPageAfterNoGrowth(t *testing.T) {
	// Two posts, then an exhausted page that never grows.
	feed := &fakeFeed{
		posts:   []*Post{post("urn:1"), post("urn:2")},
		heights: []float64{1000},
	}
	state := newFakeState("run-1")
	c := instant(New(feed, state, "run-1", Options{Quota: 10, NoGrowthLimit: 5}))

	urns, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfPage, reason)
	assert.Equal(t, []string{"urn:1", "urn:2"}, urns)
	assert.Equal(t, 5, feed.scrolls, "exactly NoGrowthLimit scrolls before giving up")
	assert.Equal(t, urns, state.saved["run-1"])
}

func TestRunReservedDuplicateTerminates(t *testing.T) {
	// A DOM that forever re-serves the same element must still terminate
	// within the no-growth limit instead of spinning.
	feed := &fakeFeed{
		posts:   []*Post{post("urn:1")},
		repeat:  post("urn:1"),
		heights: []float64{1000},
	}
	state := newFakeState("run-1")
	c := instant(New(feed, state, "run-1", Options{Quota: 10, NoGrowthLimit: 5}))

	urns, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfPage, reason)
	assert.Equal(t, []string{"urn:1"}, urns, "duplicate must be collected once")
	assert.Equal(t, 5, feed.scrolls)
}

func TestRunFilteredRepeatTerminates(t *testing.T) {
	// Virtualized feeds recreate nodes and lose the seen marker, so a
	// filtered post can be re-served forever. The loop must still reach the
	// no-growth exit instead of busy-spinning on it.
	cases := map[string]*Post{
		"comments disabled": {URN: "urn:x", CommentsDisabled: true},
		"over age limit":    {URN: "urn:x", Age: "3w"},
		"no urn":            {URN: ""},
	}
	for name, repeated := range cases {
		t.Run(name, func(t *testing.T) {
			feed := &fakeFeed{repeat: repeated, heights: []float64{1000}}
			state := newFakeState("run-1")
			c := instant(New(feed, state, "run-1", Options{
				Quota: 10, MaxAge: 7 * 24 * time.Hour, NoGrowthLimit: 5,
			}))

			urns, reason, err := c.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, ReasonEndOfPage, reason)
			assert.Empty(t, urns)
			assert.Equal(t, 5, feed.scrolls)
		})
	}
}

func TestRunGrowthResetsNoGrowthCounter(t *testing.T) {
	feed := &fakeFeed{
		posts:        []*Post{post("urn:1")},
		heights:      []float64{1000, 1000, 1500, 1500, 1500, 1500, 1500, 1500},
		growOnScroll: [][]*Post{nil, {post("urn:2")}},
	}
	state := newFakeState("run-1")
	c := instant(New(feed, state, "run-1", Options{Quota: 10, NoGrowthLimit: 3}))

	urns, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfPage, reason)
	assert.Equal(t, []string{"urn:1", "urn:2"}, urns)
	assert.Greater(t, feed.scrolls, 3, "growth must reset the no-growth counter")
}

func TestRunFiltersPosts(t *testing.T) {
	feed := &fakeFeed{posts: []*Post{
		{URN: ""},
		{URN: "urn:disabled", CommentsDisabled: true},
		{URN: "urn:old", Age: "3w"},
		{URN: "urn:fresh", Age: "2d"},
		{URN: "urn:unreadable-age", Age: "Just now"},
	}}
	state := newFakeState("run-1")
	c := instant(New(feed, state, "run-1", Options{Quota: 2, MaxAge: 7 * 24 * time.Hour}))

	urns, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonQuotaMet, reason)
	assert.Equal(t, []string{"urn:fresh", "urn:unreadable-age"}, urns,
		"unreadable ages pass the filter, disabled and over-age posts do not")
}

func TestRunCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := &fakeFeed{posts: []*Post{post("urn:1")}}
	state := newFakeState("run-1")
	c := instant(New(feed, state, "run-1", Options{Quota: 5}))

	urns, reason, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, reason)
	assert.Empty(t, urns)
}

func TestRunCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := &fakeFeed{posts: []*Post{post("urn:1")}, heights: []float64{1000}}
	state := newFakeState("run-1")
	c := New(feed, state, "run-1", Options{Quota: 5})
	// Cancel during the first scroll wait; the loop must notice at its next
	// iteration boundary and keep what it collected.
	c.sleep = func(time.Duration) { cancel() }

	urns, reason, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, reason)
	assert.Equal(t, []string{"urn:1"}, urns)
}

func TestRunCancelledByInterlock(t *testing.T) {
	feed := &fakeFeed{posts: []*Post{post("urn:1")}}
	state := newFakeState("run-1")
	state.active = false
	c := instant(New(feed, state, "run-1", Options{Quota: 5}))

	_, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, reason)
}

func TestRunCancelledWhenSuperseded(t *testing.T) {
	feed := &fakeFeed{posts: []*Post{post("urn:1")}}
	state := newFakeState("run-2")
	c := instant(New(feed, state, "run-1", Options{Quota: 5}))

	_, reason, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, reason, "a newer active run kills this one")
}

func TestRunPersistFailureSurfaces(t *testing.T) {
	feed := &fakeFeed{posts: []*Post{post("urn:1")}}
	state := newFakeState("run-1")
	state.saveErr = fmt.Errorf("disk full")
	c := instant(New(feed, state, "run-1", Options{Quota: 1}))

	urns, reason, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ReasonQuotaMet, reason)
	assert.Equal(t, []string{"urn:1"}, urns)
}
