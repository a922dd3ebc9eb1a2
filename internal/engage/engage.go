// Package engage drives one automated comment: open a post, scrape its text
// and author, generate comment text over the bridge, fill the editor and
// apply the autopost policy.
package engage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"

	"github.com/commentron/commentron/internal/bridge"
	"github.com/commentron/commentron/internal/dom"
	"github.com/commentron/commentron/internal/errlog"
	"github.com/commentron/commentron/internal/generator"
	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/stealth"
	"github.com/commentron/commentron/internal/storage"
)

// staticFallback is the last resort when even the bridge is unreachable.
const staticFallback = "Thanks for sharing this!"

// Engager performs automated engagements one at a time. Overlapping
// invocations are dropped, not queued.
type Engager struct {
	page       *rod.Page
	caller     *bridge.Caller
	defaults   storage.CommentSettings
	editorWait time.Duration
	inProgress atomic.Bool
}

// New builds an engager bound to a page and a bridge caller.
func New(page *rod.Page, caller *bridge.Caller, defaults storage.CommentSettings) *Engager {
	return &Engager{
		page:       page,
		caller:     caller,
		defaults:   defaults,
		editorWait: 8 * time.Second,
	}
}

// generationReply mirrors the generate action's reply payload.
type generationReply struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// Engage opens the post for urn and runs the full comment flow. A second
// call while one is in flight is dropped with a warning.
func (e *Engager) Engage(ctx context.Context, urn string) error {
	if !e.inProgress.CompareAndSwap(false, true) {
		logger.Warn("engagement already in progress, dropping", "urn", urn)
		return nil
	}
	defer e.inProgress.Store(false)

	log := logger.With("urn", urn)
	log.Infow("engaging post")

	if err := e.openPost(urn); err != nil {
		errlog.Report("engage.open", err)
		return err
	}

	// Tag the flow as automation-originated; manual clicks without this
	// marker are left to native LinkedIn behavior.
	if _, err := e.page.Eval(fmt.Sprintf(`() => document.body.setAttribute(%q, '1')`, dom.AttrAutomated)); err != nil {
		log.Debugw("failed to set automation marker", "error", err)
	}
	defer e.page.Eval(fmt.Sprintf(`() => document.body.removeAttribute(%q)`, dom.AttrAutomated))

	post := e.scrapePost()
	settings, err := storage.GetCommentSettings(e.defaults)
	if err != nil {
		log.Warnw("failed to load comment settings, using defaults", "error", err)
		settings = e.defaults
	}

	// Spend time on the post the way a reader would before commenting.
	time.Sleep(stealth.ReadingDelay(len(post.Text)))

	text := e.generate(ctx, post, settings)

	editor, err := openEditor(e.page, e.editorWait)
	if err != nil {
		errlog.Report("engage.editor", err)
		return fmt.Errorf("comment editor unavailable: %w", err)
	}

	submitted, err := FinishComment(editor, text, settings.Autopost, stealth.ShortDelay())
	if err != nil {
		errlog.Report("engage.submit", err)
		return err
	}

	mode := generator.AutopostReview
	if submitted {
		mode = generator.AutopostOn
	}
	if err := storage.RecordEngagement(storage.Engagement{URN: urn, Comment: text, Mode: mode}); err != nil {
		log.Warnw("failed to record engagement", "error", err)
	}
	if err := storage.MarkEngaged(urn); err != nil {
		log.Warnw("failed to mark post engaged", "error", err)
	}
	if _, err := e.caller.Call(ctx, bridge.ActionIncrementDailyCount, nil); err != nil {
		log.Debugw("failed to increment daily count", "error", err)
	}

	log.Infow("engagement complete", "submitted", submitted, "chars", len(text))
	return nil
}

// scrapedPost is what the prompt needs from the page.
type scrapedPost struct {
	Text   string
	Author string
}

func (e *Engager) openPost(urn string) error {
	url := PostURL(urn)
	if err := e.page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to post: %w", err)
	}
	if err := e.page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for post load: %w", err)
	}
	time.Sleep(stealth.RandomDelay(2*time.Second, 4*time.Second))
	return nil
}

// scrapePost reads the post text and author through the fallback chains.
// Missing pieces degrade to empty strings; generation copes.
func (e *Engager) scrapePost() scrapedPost {
	var p scrapedPost

	if el, _, err := dom.PostText.FirstWithTimeout(e.page, 3*time.Second); err == nil {
		if text, err := el.Text(); err == nil {
			p.Text = strings.TrimSpace(text)
		}
	}
	if el, _, err := dom.PostAuthor.FirstWithTimeout(e.page, 2*time.Second); err == nil {
		if name, err := el.Text(); err == nil {
			p.Author = strings.TrimSpace(name)
		}
	}

	if p.Text == "" {
		logger.Debug("post text not found, generating from context-free prompt")
	}
	return p
}

// generate asks the bridge for comment text. Any bridge failure (timeout,
// {error} reply) degrades to static fallback text; the automated flow never
// surfaces generation errors to the user.
func (e *Engager) generate(ctx context.Context, post scrapedPost, settings storage.CommentSettings) string {
	payload := generator.Request{
		PostText: post.Text,
		Author:   post.Author,
		Settings: settings,
	}

	raw, err := e.caller.Call(ctx, bridge.ActionGenerateFromContent, payload)
	if err != nil {
		errlog.Report("engage.generate", err)
		return staticFallback
	}

	var reply generationReply
	if err := json.Unmarshal(raw, &reply); err != nil || reply.Text == "" {
		errlog.Report("engage.generate.decode", fmt.Errorf("bad generation reply: %v", err))
		return staticFallback
	}
	if reply.Fallback {
		logger.Debug("generation used fallback text")
	}
	return reply.Text
}

// PostURL builds the canonical feed URL for an activity URN.
func PostURL(urn string) string {
	return "https://www.linkedin.com/feed/update/" + urn + "/"
}
