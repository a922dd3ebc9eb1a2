package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/commentron/commentron/internal/auth"
	"github.com/commentron/commentron/internal/automation"
	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/schedule"
)

var runWatch bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full collect-and-engage cycle",
	Long: `Logs in, collects post URNs from the configured search page and comments
on each. With schedule.enabled the cycle recurs on the configured cron
expression and the live feed stays open with the AI buttons installed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner()

		cfg, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signalContext()
		defer stop()

		browser, closeBrowser, err := automation.LaunchBrowser(cfg.Stealth.Headless)
		if err != nil {
			return err
		}
		defer closeBrowser()

		if err := auth.Login(browser, cfg.LinkedIn.Email, cfg.LinkedIn.Password); err != nil {
			return err
		}

		runner := automation.NewRunner(cfg, browser)

		if cfg.Schedule.Enabled {
			sched := schedule.New()
			err := sched.Add(cfg.Schedule.Cron, "cycle", func() {
				if err := runner.Cycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("scheduled cycle failed", "error", err)
				}
			})
			if err != nil {
				return err
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()

			logger.Info("scheduler started", "cron", cfg.Schedule.Cron)
			return ignoreCancel(runner.WatchFeed(ctx))
		}

		if err := runner.Cycle(ctx); err != nil {
			return ignoreCancel(err)
		}
		if runWatch {
			return ignoreCancel(runner.WatchFeed(ctx))
		}
		return nil
	},
}

// ignoreCancel maps a signal-driven shutdown to a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "keep the feed open with AI buttons after the cycle")
	rootCmd.AddCommand(runCmd)
}
