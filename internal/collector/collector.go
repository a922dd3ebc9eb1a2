// Package collector implements the page-automation collection loop: scroll a
// search-results or hashtag feed, extract post URNs, filter them, and stop on
// quota, end of page, or cancellation.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commentron/commentron/internal/errlog"
	"github.com/commentron/commentron/internal/logger"
)

// Post is one scraped feed entry, already marked seen in the DOM by the
// Feed implementation.
type Post struct {
	URN              string
	Age              string
	CommentsDisabled bool
}

// Feed abstracts the DOM so the loop runs against fakes in tests.
type Feed interface {
	// NextUnseen returns the next post not yet marked, or nil when the
	// visible page is exhausted. Implementations mark the element before
	// returning it.
	NextUnseen() (*Post, error)
	// ScrollToBottom scrolls the document to its current bottom.
	ScrollToBottom() error
	// Height returns the current document height.
	Height() (float64, error)
	// TryLoadMore clicks a load-more control if one is present.
	TryLoadMore() bool
}

// StateStore is the persisted half of the run state: the cross-run
// interlock the loop polls at iteration boundaries.
type StateStore interface {
	ActiveRun() (string, bool, error)
	SaveURNs(runID string, urns []string) error
}

// Reason says why a run stopped.
type Reason string

const (
	ReasonQuotaMet  Reason = "quota_met"
	ReasonEndOfPage Reason = "end_of_page"
	ReasonCancelled Reason = "cancelled"
)

// Options bound one collection run.
type Options struct {
	// Quota is how many URNs to gather.
	Quota int
	// MaxAge drops posts older than this; zero disables the filter.
	MaxAge time.Duration
	// ScrollWait is the fixed pause after each bottom scroll.
	ScrollWait time.Duration
	// NoGrowthLimit is how many consecutive scrolls without page growth end
	// the run. Defaults to 5.
	NoGrowthLimit int
}

// Collector drives one collection run.
type Collector struct {
	feed  Feed
	state StateStore
	runID string
	opts  Options

	// sleep is swappable so tests run instantly.
	sleep func(time.Duration)
}

// New builds a collector for one run.
func New(feed Feed, state StateStore, runID string, opts Options) *Collector {
	if opts.NoGrowthLimit <= 0 {
		opts.NoGrowthLimit = 5
	}
	if opts.ScrollWait <= 0 {
		opts.ScrollWait = 1500 * time.Millisecond
	}
	return &Collector{
		feed:  feed,
		state: state,
		runID: runID,
		opts:  opts,
		sleep: time.Sleep,
	}
}

// probe outcome for one loop iteration.
type probeResult int

const (
	probeCollected probeResult = iota // new URN appended
	probeSkipped                      // element consumed but filtered out
	probeExhausted                    // nothing new on the visible page
)

// Run executes the collection loop until quota, end of page, or
// cancellation. The collected URN list is persisted on quota/end-of-page
// completion; a cancelled run leaves whatever was saved last.
func (c *Collector) Run(ctx context.Context) ([]string, Reason, error) {
	log := logger.With("run_id", c.runID, "quota", c.opts.Quota)
	log.Infow("collection run starting")

	var collected []string
	seen := make(map[string]bool)
	noGrowth := 0

	lastHeight, err := c.feed.Height()
	if err != nil {
		errlog.Report("collector.height", err)
	}

	for {
		if c.cancelled(ctx) {
			log.Infow("collection run cancelled", "collected", len(collected))
			return collected, ReasonCancelled, nil
		}

		switch c.probe(log, seen, &collected) {
		case probeCollected:
			if len(collected) >= c.opts.Quota {
				log.Infow("quota met", "collected", len(collected))
				return c.finish(collected, ReasonQuotaMet)
			}
			// Cancellation is observed after each successful collection.
			if c.cancelled(ctx) {
				log.Infow("collection run cancelled", "collected", len(collected))
				return collected, ReasonCancelled, nil
			}
			noGrowth = 0

		case probeSkipped:
			// Consumed a non-qualifying element; keep probing without
			// scrolling.

		case probeExhausted:
			// Nothing new on the visible page: try load-more, scroll,
			// and watch for growth.
			c.feed.TryLoadMore()
			if err := c.feed.ScrollToBottom(); err != nil {
				errlog.Report("collector.scroll", err)
			}
			c.sleep(c.opts.ScrollWait)

			height, err := c.feed.Height()
			if err != nil {
				errlog.Report("collector.height", err)
				height = lastHeight
			}

			if height > lastHeight {
				noGrowth = 0
			} else {
				noGrowth++
				log.Debugw("no page growth after scroll", "attempt", noGrowth, "limit", c.opts.NoGrowthLimit)
				if noGrowth >= c.opts.NoGrowthLimit {
					log.Infow("end of page reached", "collected", len(collected))
					return c.finish(collected, ReasonEndOfPage)
				}
			}
			lastHeight = height
		}
	}
}

// probe handles one element lookup. Errors and panics are reported and the
// scan continues; the no-growth exit bounds a persistently failing DOM.
func (c *Collector) probe(log *zap.SugaredLogger, seen map[string]bool, collected *[]string) (res probeResult) {
	defer func() {
		if r := recover(); r != nil {
			errlog.Report("collector.probe", fmt.Errorf("panic: %v", r))
			res = probeExhausted
		}
	}()

	p, err := c.feed.NextUnseen()
	if err != nil {
		errlog.Report("collector.next", err)
		return probeExhausted
	}
	if p == nil {
		return probeExhausted
	}

	if p.URN == "" {
		// An unidentifiable element cannot make progress. Treat it like an
		// exhausted page so a DOM that keeps serving it still reaches the
		// no-growth exit.
		log.Debugw("post without urn")
		return probeExhausted
	}

	// Any re-served URN makes no progress: route it through the no-growth
	// exit rather than spinning on it. Virtualized feeds recreate nodes and
	// lose the seen marker, so this covers collected and filtered posts
	// alike.
	if seen[p.URN] {
		log.Debugw("skipping already-seen urn", "urn", p.URN)
		return probeExhausted
	}

	if p.CommentsDisabled {
		seen[p.URN] = true
		log.Debugw("skipping post with disabled comments", "urn", p.URN)
		return probeSkipped
	}

	if c.opts.MaxAge > 0 {
		if age, ok := ParseRelativeAge(p.Age); ok && age > c.opts.MaxAge {
			seen[p.URN] = true
			log.Debugw("skipping post over age limit", "urn", p.URN, "age", p.Age)
			return probeSkipped
		}
	}

	seen[p.URN] = true
	*collected = append(*collected, p.URN)
	log.Debugw("collected post", "urn", p.URN, "count", len(*collected))
	return probeCollected
}

func (c *Collector) finish(collected []string, reason Reason) ([]string, Reason, error) {
	if err := c.state.SaveURNs(c.runID, collected); err != nil {
		errlog.Report("collector.persist", err)
		return collected, reason, fmt.Errorf("failed to persist collected urns: %w", err)
	}
	return collected, reason, nil
}

// cancelled checks the in-process context and the persisted interlock: the
// run is dead when its context is done, the active flag is off, or a newer
// run has superseded this one.
func (c *Collector) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	activeID, active, err := c.state.ActiveRun()
	if err != nil {
		errlog.Report("collector.state", err)
		return false
	}
	return !active || activeID != c.runID
}
