package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/commentron/commentron/internal/config"
	"github.com/commentron/commentron/internal/errlog"
	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/storage"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "commentron",
	Short: "LinkedIn AI comment automation",
	Long: `commentron collects posts from a LinkedIn search or hashtag feed and
engages them with AI-generated comments, with per-day limits, human-like
pacing and an optional manual AI button on the live feed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (overrides CONFIG_PATH)")
}

// setup loads configuration and initializes logging, storage and error
// reporting. The returned cleanup closes them in reverse order.
func setup() (*config.Config, func(), error) {
	if flagConfig != "" {
		os.Setenv("CONFIG_PATH", flagConfig)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:    cfg.Logging.Level,
		ToFile:   cfg.Logging.ToFile,
		FilePath: cfg.Logging.FilePath,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if err := storage.InitDB(cfg.Database.Path); err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	errlog.Init(cfg.ErrorLog.URL)

	cleanup := func() {
		storage.Close()
		logger.Sync()
	}
	return cfg, cleanup, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printBanner() {
	fmt.Println(`
⚠️  Automating LinkedIn violates its User Agreement and can get your account
   restricted or banned. Keep quotas conservative and use at your own risk.`)
	fmt.Println()
}
