// Package dom centralizes the CSS selector fallback chains used against
// LinkedIn's markup. LinkedIn's class names churn, so every lookup site works
// through a Locator: an ordered list of selectors tried until one matches.
package dom

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// Finder resolves a single CSS selector. *rod.Page and *rod.Element both
// satisfy it, and tests supply fakes.
type Finder interface {
	Element(selector string) (*rod.Element, error)
}

// Locator is a named, ordered selector fallback chain.
type Locator struct {
	Name      string
	Selectors []string
}

// First tries each selector in order against f and returns the first match
// together with the selector that produced it.
func (l Locator) First(f Finder) (*rod.Element, string, error) {
	var lastErr error
	for _, sel := range l.Selectors {
		el, err := f.Element(sel)
		if err == nil {
			return el, sel, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("locator %s has no selectors", l.Name)
	}
	return nil, "", fmt.Errorf("%s not found: %w", l.Name, lastErr)
}

// FirstWithTimeout bounds each selector attempt on a rod page, matching the
// short per-selector timeouts used throughout the engagement flow.
func (l Locator) FirstWithTimeout(page *rod.Page, perSelector time.Duration) (*rod.Element, string, error) {
	return l.First(timeoutFinder{page: page, d: perSelector})
}

type timeoutFinder struct {
	page *rod.Page
	d    time.Duration
}

func (t timeoutFinder) Element(selector string) (*rod.Element, error) {
	return t.page.Timeout(t.d).Element(selector)
}

// Has reports whether any selector in the chain matches.
func (l Locator) Has(page *rod.Page) bool {
	for _, sel := range l.Selectors {
		has, _, err := page.Has(sel)
		if err == nil && has {
			return true
		}
	}
	return false
}
