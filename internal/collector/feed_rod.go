package collector

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/commentron/commentron/internal/dom"
	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/stealth"
)

// AutomationWindowName marks the dedicated window the collector is allowed
// to run in.
const AutomationWindowName = "commentron-automation"

// feedURLPattern matches the pages the collector may scan: content search
// results and hashtag feeds.
var feedURLPattern = regexp.MustCompile(`linkedin\.com/(search/results/content|feed/hashtag)`)

// Eligible reports whether the collector may run in this page: the window
// must carry the automation name, the URL must be a scannable feed, and the
// persisted automation flag must be on. Anything else makes the collector a
// no-op.
func Eligible(page *rod.Page, state StateStore) (bool, string) {
	name, err := page.Eval(`() => window.name`)
	if err != nil || name.Value.Str() != AutomationWindowName {
		return false, "not the automation window"
	}

	info, err := page.Info()
	if err != nil {
		return false, fmt.Sprintf("page info unavailable: %v", err)
	}
	if !feedURLPattern.MatchString(info.URL) {
		return false, "url is not a search or hashtag feed"
	}

	if _, active, err := state.ActiveRun(); err != nil || !active {
		return false, "automation flag is off"
	}

	return true, ""
}

// MarkAutomationWindow names the window so Eligible recognizes it.
func MarkAutomationWindow(page *rod.Page) error {
	_, err := page.Eval(fmt.Sprintf(`() => { window.name = %q }`, AutomationWindowName))
	if err != nil {
		return fmt.Errorf("failed to name automation window: %w", err)
	}
	return nil
}

// rodFeed implements Feed over a live rod page. Each probe marks the
// element it touched so repeated scans stay idempotent.
type rodFeed struct {
	page *rod.Page
}

// NewRodFeed wraps a rod page as a Feed.
func NewRodFeed(page *rod.Page) Feed {
	return &rodFeed{page: page}
}

// nextUnseenJS finds the first unmarked feed post, marks it, and extracts
// its URN, relative age and comment availability in one pass so the DOM
// cannot shift between reads.
const nextUnseenJS = `() => {
	const posts = document.querySelectorAll(
		"div.feed-shared-update-v2[data-urn]:not([data-ctron-seen])," +
		"div[data-urn^='urn:li:activity']:not([data-ctron-seen])");
	if (!posts.length) return { found: false };
	const el = posts[0];
	el.setAttribute('data-ctron-seen', '1');

	const urn = el.getAttribute('data-urn') || '';

	const ageEl = el.querySelector(
		"span.update-components-actor__sub-description span[aria-hidden='true']," +
		"span.feed-shared-actor__sub-description");
	const age = ageEl ? ageEl.innerText.trim() : '';

	const btn = el.querySelector("button[aria-label*='Comment'], button.comment-button");
	const disabled = !btn || btn.disabled || btn.getAttribute('aria-disabled') === 'true';

	return { found: true, urn: urn, age: age, disabled: disabled };
}`

func (f *rodFeed) NextUnseen() (*Post, error) {
	res, err := f.page.Eval(nextUnseenJS)
	if err != nil {
		return nil, fmt.Errorf("failed to query next post: %w", err)
	}

	v := res.Value
	if !v.Get("found").Bool() {
		return nil, nil
	}

	return &Post{
		URN:              v.Get("urn").Str(),
		Age:              v.Get("age").Str(),
		CommentsDisabled: v.Get("disabled").Bool(),
	}, nil
}

func (f *rodFeed) ScrollToBottom() error {
	return stealth.ScrollToBottom(f.page)
}

func (f *rodFeed) Height() (float64, error) {
	res, err := f.page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("failed to read page height: %w", err)
	}
	return res.Value.Num(), nil
}

func (f *rodFeed) TryLoadMore() bool {
	btn, sel, err := dom.LoadMore.FirstWithTimeout(f.page, 1*time.Second)
	if err != nil {
		return false
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		logger.Debug("load-more click failed", "selector", sel, "error", err)
		return false
	}
	logger.Debug("clicked load-more button", "selector", sel)
	time.Sleep(stealth.ShortDelay())
	return true
}
