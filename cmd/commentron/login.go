package main

import (
	"github.com/spf13/cobra"

	"github.com/commentron/commentron/internal/auth"
	"github.com/commentron/commentron/internal/automation"
)

var loginFresh bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		if loginFresh {
			if err := auth.ClearSession(); err != nil {
				return err
			}
		}

		browser, closeBrowser, err := automation.LaunchBrowser(cfg.Stealth.Headless)
		if err != nil {
			return err
		}
		defer closeBrowser()

		return auth.Login(browser, cfg.LinkedIn.Email, cfg.LinkedIn.Password)
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginFresh, "fresh", false, "discard the saved session first")
	rootCmd.AddCommand(loginCmd)
}
