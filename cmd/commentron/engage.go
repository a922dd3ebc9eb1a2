package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/commentron/commentron/internal/auth"
	"github.com/commentron/commentron/internal/automation"
	"github.com/commentron/commentron/internal/storage"
)

var engageCmd = &cobra.Command{
	Use:   "engage [urn...]",
	Short: "Comment on collected posts",
	Long: `Comments on the given post URNs, or on the latest collection run's
posts when none are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner()

		cfg, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		urns := args
		if len(urns) == 0 {
			run, err := storage.LatestRun()
			if err != nil {
				return fmt.Errorf("failed to load latest run: %w", err)
			}
			if run == nil || len(run.URNs) == 0 {
				return fmt.Errorf("no collected posts to engage; run collect first")
			}
			urns = run.URNs
		}

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
		return ignoreCancel(runner.EngageAll(ctx, urns))
	},
}

func init() {
	rootCmd.AddCommand(engageCmd)
}
