package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/commentron/commentron/internal/auth"
	"github.com/commentron/commentron/internal/automation"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect post URNs without engaging",
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
		urns, err := runner.Collect(ctx)
		if err != nil {
			return ignoreCancel(err)
		}

		fmt.Printf("Collected %d posts:\n", len(urns))
		for _, urn := range urns {
			fmt.Println("  " + urn)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
