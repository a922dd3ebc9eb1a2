package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/commentron/commentron/internal/bridge"
	"github.com/commentron/commentron/internal/buttons"
	"github.com/commentron/commentron/internal/collector"
	"github.com/commentron/commentron/internal/config"
	"github.com/commentron/commentron/internal/engage"
	"github.com/commentron/commentron/internal/errlog"
	"github.com/commentron/commentron/internal/generator"
	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/stealth"
	"github.com/commentron/commentron/internal/storage"
)

// Runner owns one browser's automation: collection runs, engagement passes
// and the manual AI buttons on the live feed.
type Runner struct {
	cfg      *config.Config
	browser  *rod.Browser
	gen      *generator.Generator
	store    *Store
	disp     *bridge.Dispatcher
	caller   *bridge.Caller
	defaults storage.CommentSettings
}

// NewRunner assembles the generator, bridge dispatcher and state store for a
// connected browser.
func NewRunner(cfg *config.Config, browser *rod.Browser) *Runner {
	defaults := storage.CommentSettings{
		Goal:      cfg.Comments.Goal,
		Tone:      cfg.Comments.Tone,
		Length:    cfg.Comments.Length,
		Expertise: cfg.Comments.Expertise,
		Autopost:  cfg.Comments.Autopost,
	}
	if defaults.Goal == "" {
		defaults.Goal = generator.GoalNetworking
	}
	if defaults.Tone == "" {
		defaults.Tone = generator.ToneProfessional
	}
	if defaults.Length == "" {
		defaults.Length = generator.LengthMedium
	}
	if defaults.Autopost == "" {
		defaults.Autopost = generator.AutopostReview
	}

	gen := generator.New(generator.Options{
		APIKey:     cfg.Generator.APIKey,
		Model:      cfg.Generator.Model,
		Timeout:    cfg.GeneratorTimeout(),
		Fallbacks:  cfg.Generator.FallbackComments,
		DailyLimit: cfg.Generator.DailyLimit,
	})

	store := NewStore(defaults)
	disp := bridge.NewDispatcher(store)
	RegisterActions(disp, gen, defaults)

	return &Runner{
		cfg:      cfg,
		browser:  browser,
		gen:      gen,
		store:    store,
		disp:     disp,
		caller:   bridge.Connect(disp),
		defaults: defaults,
	}
}

// Dispatcher exposes the bridge dispatcher, for wiring extra pages.
func (r *Runner) Dispatcher() *bridge.Dispatcher { return r.disp }

// Collect runs one collection pass over the configured search page and
// returns the gathered URNs. The run row is begun and finished here; the
// window lingers for the grace delay so a watching user sees the outcome.
func (r *Runner) Collect(ctx context.Context) ([]string, error) {
	runID := uuid.NewString()
	if err := storage.BeginRun(runID, r.cfg.Automation.Quota, r.cfg.Automation.PostAgeLimit); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	log := logger.With("run_id", runID)

	// finish closes the run row exactly once; the deferred call is the
	// catch-all so an abnormal exit still leaves a terminal state behind.
	finished := false
	finish := func(outcome, message string) {
		if finished {
			return
		}
		finished = true
		if ferr := storage.FinishRun(runID, outcome, message); ferr != nil {
			log.Warnw("failed to finish run", "error", ferr)
		}
	}
	defer finish("aborted", "run did not complete")

	log.Infow("opening automation window", "url", r.cfg.Automation.SearchURL)

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: r.cfg.Automation.SearchURL})
	if err != nil {
		finish("error", "failed to open automation window")
		return nil, fmt.Errorf("failed to open automation window: %w", err)
	}
	defer func() {
		time.Sleep(r.cfg.GraceDelay())
		if err := page.Close(); err != nil {
			log.Debugw("automation window close failed", "error", err)
		}
	}()

	if err := page.WaitLoad(); err != nil {
		finish("error", "search page did not load")
		return nil, fmt.Errorf("search page did not load: %w", err)
	}

	stealth.MaskAutomation(page)
	if err := collector.MarkAutomationWindow(page); err != nil {
		log.Warnw("failed to mark automation window", "error", err)
	}

	relay, err := bridge.InstallRelay(page, r.disp)
	if err != nil {
		log.Warnw("failed to install bridge relay on automation window", "error", err)
	} else {
		defer relay.Close()
	}

	if ok, why := collector.Eligible(page, r.store); !ok {
		finish("error", why)
		return nil, fmt.Errorf("collector not eligible: %s", why)
	}

	col := collector.New(collector.NewRodFeed(page), r.store, runID, collector.Options{
		Quota:         r.cfg.Automation.Quota,
		MaxAge:        r.cfg.PostAgeLimitDuration(),
		ScrollWait:    r.cfg.ScrollWait(),
		NoGrowthLimit: r.cfg.Automation.NoGrowthLimit,
	})

	urns, reason, err := col.Run(ctx)
	if err != nil {
		errlog.Report("runner.collect", err)
	}

	// Finish before the grace delay so the lingering window reads the
	// completed state and its message.
	finish(string(reason), fmt.Sprintf("Collected %d posts", len(urns)))

	log.Infow("collection pass done", "collected", len(urns), "reason", reason)
	return urns, err
}

// EngageAll comments on each collected post in order, pacing engagements
// with the configured delay window and the longer stealth breaks. It stops
// early on context cancellation or when the daily generation cap is hit.
func (r *Runner) EngageAll(ctx context.Context, urns []string) error {
	if len(urns) == 0 {
		return nil
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to open engagement page: %w", err)
	}
	defer page.Close()

	relay, err := bridge.InstallRelay(page, r.disp)
	if err != nil {
		logger.Warn("failed to install bridge relay on engagement page", "error", err)
	} else {
		defer relay.Close()
	}

	engager := engage.New(page, r.caller, r.defaults)

	for i, urn := range urns {
		if ctx.Err() != nil {
			logger.Info("engagement pass cancelled", "done", i, "total", len(urns))
			return ctx.Err()
		}

		limit, err := r.gen.CheckDailyLimit()
		if err != nil {
			logger.Warn("daily limit check failed, continuing", "error", err)
		} else if !limit.Allowed {
			logger.Info("daily generation limit reached, stopping engagement pass",
				"limit", limit.Limit, "used", limit.Used)
			return nil
		}

		if err := engager.Engage(ctx, urn); err != nil {
			errlog.Report("runner.engage", err)
		}

		if i == len(urns)-1 {
			break
		}
		if stealth.ShouldTakeBreak(i + 1) {
			pause := stealth.BreakDuration()
			logger.Info("taking a break", "duration", pause)
			r.pause(ctx, pause)
		} else {
			r.pause(ctx, stealth.RandomDelay(r.cfg.GetMinDelay(), r.cfg.GetMaxDelay()))
		}
	}

	logger.Info("engagement pass done", "total", len(urns))
	return nil
}

// Cycle is one full collect-then-engage pass.
func (r *Runner) Cycle(ctx context.Context) error {
	urns, err := r.Collect(ctx)
	if err != nil {
		return err
	}
	if err := r.EngageAll(ctx, urns); err != nil {
		return err
	}
	if err := storage.CleanupOldUsage(); err != nil {
		logger.Debug("usage cleanup failed", "error", err)
	}
	return nil
}

// WatchFeed opens the live feed with the bridge relay and the AI buttons
// installed and keeps them installed across navigations until ctx ends.
func (r *Runner) WatchFeed(ctx context.Context) error {
	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "https://www.linkedin.com/feed/"})
	if err != nil {
		return fmt.Errorf("failed to open feed: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("feed did not load: %w", err)
	}
	stealth.MaskAutomation(page)

	relay, err := bridge.InstallRelay(page, r.disp)
	if err != nil {
		return fmt.Errorf("failed to install bridge relay: %w", err)
	}
	defer relay.Close()

	manager := buttons.NewManager(relay)
	if err := manager.Install(page); err != nil {
		logger.Warn("initial button install failed", "error", err)
	}

	// The page script is lost on navigation; re-install on a slow tick. The
	// script itself is idempotent, so repeats on the same document are no-ops.
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	logger.Info("watching feed, AI comment buttons active")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := manager.Install(page); err != nil {
				logger.Debug("button re-install failed", "error", err)
			}
		}
	}
}

// pause sleeps for d or until ctx is cancelled.
func (r *Runner) pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
