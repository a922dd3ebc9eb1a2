package automation

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/stealth"
)

// LaunchBrowser starts Chrome with the anti-detection flags and connects.
// The returned cleanup closes the browser and kills the launched process.
func LaunchBrowser(headless bool) (*rod.Browser, func(), error) {
	l := launcher.New().
		Headless(headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-infobars").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("user-agent", stealth.RandomUserAgent())

	url, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	if err := stealth.ApplyStealth(browser); err != nil {
		logger.Warn("failed to apply stealth evasions", "error", err)
	}

	cleanup := func() {
		if err := browser.Close(); err != nil {
			logger.Debug("browser close failed", "error", err)
		}
		l.Cleanup()
	}

	logger.Info("browser launched", "headless", headless)
	return browser, cleanup, nil
}
