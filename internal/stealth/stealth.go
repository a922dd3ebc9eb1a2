// Package stealth holds the anti-detection helpers: randomized timing,
// human-like typing and scrolling, and browser fingerprint masking.
package stealth

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// RandomDelay returns a random duration in [min, max).
func RandomDelay(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

// ShortDelay is a sub-second pause between micro-actions.
func ShortDelay() time.Duration {
	return RandomDelay(100*time.Millisecond, 500*time.Millisecond)
}

// ThinkPause sleeps for a human "thinking" interval.
func ThinkPause() {
	time.Sleep(RandomDelay(2*time.Second, 8*time.Second))
}

// ReadingDelay approximates time spent reading content of the given length
// at roughly 225 words per minute, with ±30% jitter.
func ReadingDelay(contentLength int) time.Duration {
	words := contentLength / 5
	ms := float64(words) * (60000.0 / 225.0)
	factor := 1.0 + (rng.Float64()*2-1)*0.3
	return time.Duration(ms*factor) * time.Millisecond
}

// ApplyStealth runs the go-rod/stealth evasions once against the browser.
func ApplyStealth(browser *rod.Browser) error {
	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("failed to apply stealth page: %w", err)
	}
	return page.Close()
}

// MaskAutomation hides the obvious automation tells on a page: the
// navigator.webdriver flag, the permissions probe and the empty plugin list.
func MaskAutomation(page *rod.Page) error {
	_, err := page.Eval(`() => {
		Object.defineProperty(navigator, 'webdriver', { get: () => false });
		const origQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (p) => (
			p.name === 'notifications'
				? Promise.resolve({ state: Notification.permission })
				: origQuery(p)
		);
		Object.defineProperty(navigator, 'plugins', {
			get: () => [{ name: 'Chrome PDF Plugin', length: 1 }],
		});
	}`)
	if err != nil {
		return fmt.Errorf("failed to mask automation flags: %w", err)
	}
	return nil
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// RandomUserAgent picks a realistic desktop Chrome user agent.
func RandomUserAgent() string {
	return userAgents[rng.Intn(len(userAgents))]
}

var viewports = []struct{ w, h int }{
	{1920, 1080}, {1536, 864}, {1440, 900}, {1366, 768},
}

// RandomViewport sets a common desktop viewport size.
func RandomViewport(page *rod.Page) error {
	v := viewports[rng.Intn(len(viewports))]
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: v.w, Height: v.h})
}

// ScrollPage scrolls down (or up) a small random amount in a few steps.
func ScrollPage(page *rod.Page, up bool) error {
	amount := 50 + rng.Intn(150)
	if up {
		amount = -amount
	}
	steps := 1 + rng.Intn(3)
	for i := 0; i < steps; i++ {
		if _, err := page.Eval(fmt.Sprintf(`() => window.scrollBy(0, %d)`, amount/steps)); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		time.Sleep(RandomDelay(50*time.Millisecond, 150*time.Millisecond))
	}
	return nil
}

// ScrollToBottom scrolls the document to its current bottom.
func ScrollToBottom(page *rod.Page) error {
	_, err := page.Eval(`() => window.scrollTo({ top: document.body.scrollHeight, behavior: 'smooth' })`)
	if err != nil {
		return fmt.Errorf("failed to scroll to bottom: %w", err)
	}
	return nil
}

// BrowseFeed scrolls through a feed like a reader would: scroll, pause,
// occasionally drift back up.
func BrowseFeed(page *rod.Page, scrolls int) error {
	for i := 0; i < scrolls; i++ {
		if err := ScrollPage(page, false); err != nil {
			return err
		}
		time.Sleep(RandomDelay(1*time.Second, 4*time.Second))
		if rng.Float64() < 0.2 {
			ScrollPage(page, true)
			time.Sleep(ShortDelay())
		}
	}
	return nil
}

// TypeInto types text into an element character by character with variable
// keystroke delays and the occasional corrected typo.
func TypeInto(page *rod.Page, el *rod.Element, text string) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to focus element: %w", err)
	}
	time.Sleep(ShortDelay())

	for i, char := range text {
		if rng.Float64() < 0.02 {
			if wrong := adjacentKey(char); wrong != char {
				el.Input(string(wrong))
				time.Sleep(RandomDelay(100*time.Millisecond, 200*time.Millisecond))
				page.Keyboard.Press(input.Backspace)
				time.Sleep(RandomDelay(100*time.Millisecond, 200*time.Millisecond))
			}
		}
		if err := el.Input(string(char)); err != nil {
			return fmt.Errorf("failed to type character: %w", err)
		}
		time.Sleep(keystrokeDelay(i))
	}
	return nil
}

// TypeText is TypeInto with a selector lookup.
func TypeText(page *rod.Page, selector, text string) error {
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	return TypeInto(page, el, text)
}

func keystrokeDelay(position int) time.Duration {
	base := 150 * time.Millisecond
	if position < 5 {
		base = 200 * time.Millisecond
	}
	if rng.Float64() < 0.1 {
		base = RandomDelay(300*time.Millisecond, 800*time.Millisecond)
	}
	factor := 1.0 + (rng.Float64()*2-1)*0.4
	return time.Duration(float64(base) * factor)
}

var qwertyNeighbors = map[rune]string{
	'a': "sqwz", 'b': "vghn", 'c': "xdfv", 'd': "serfcx", 'e': "wrds",
	'f': "drtgvc", 'g': "ftyhbv", 'h': "gyujnb", 'i': "uokj", 'j': "huikmn",
	'k': "jiolm", 'l': "kop", 'm': "njk", 'n': "bhjm", 'o': "iplk",
	'p': "ol", 'q': "wa", 'r': "etfd", 's': "awedxz", 't': "rygf",
	'u': "yijh", 'v': "cfgb", 'w': "qesa", 'x': "zsdc", 'y': "tuhg", 'z': "asx",
}

func adjacentKey(char rune) rune {
	lower := []rune(strings.ToLower(string(char)))[0]
	if neighbors, ok := qwertyNeighbors[lower]; ok {
		runes := []rune(neighbors)
		return runes[rng.Intn(len(runes))]
	}
	return char
}

// ShouldTakeBreak signals a longer pause every ~25 actions.
func ShouldTakeBreak(actionCount int) bool {
	return actionCount > 0 && actionCount%25 == 0 && rng.Float64() < 0.7
}

// BreakDuration is how long a break lasts.
func BreakDuration() time.Duration {
	return RandomDelay(10*time.Minute, 30*time.Minute)
}
