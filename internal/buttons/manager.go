// Package buttons attaches a manual "🤖 AI" control next to every comment
// button in the live feed. It is independent of the automated engagement
// flow: the user clicks, the page script scrapes the post and drives the
// whole generate-and-fill sequence through the bridge.
package buttons

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/commentron/commentron/internal/bridge"
	"github.com/commentron/commentron/internal/dom"
	"github.com/commentron/commentron/internal/logger"
)

// scriptConfig is handed to the page script. Selector chains come from the
// dom package so there is one place to update when LinkedIn's markup moves.
type scriptConfig struct {
	ButtonSelectors []string `json:"buttonSelectors"`
	PostSelectors   []string `json:"postSelectors"`
	TextSelectors   []string `json:"textSelectors"`
	AuthorSelectors []string `json:"authorSelectors"`
	EditorSelectors []string `json:"editorSelectors"`
	SubmitSelectors []string `json:"submitSelectors"`
	RescanMs        int      `json:"rescanMs"`
	EditorWaitMs    int      `json:"editorWaitMs"`
	GenerateMs      int      `json:"generateMs"`
	SafetyMs        int      `json:"safetyMs"`
}

// Manager installs the AI button script into feed pages.
type Manager struct {
	relay *bridge.Relay
	cfg   scriptConfig
}

// NewManager builds a manager; the relay must already be installed on any
// page the script will run in.
func NewManager(relay *bridge.Relay) *Manager {
	return &Manager{
		relay: relay,
		cfg: scriptConfig{
			ButtonSelectors: dom.CommentButton.Selectors,
			PostSelectors:   dom.FeedPost.Selectors,
			TextSelectors:   dom.PostText.Selectors,
			AuthorSelectors: dom.PostAuthor.Selectors,
			EditorSelectors: dom.CommentEditor.Selectors,
			SubmitSelectors: dom.SubmitComment.Selectors,
			RescanMs:        int((4 * time.Second).Milliseconds()),
			EditorWaitMs:    int((8 * time.Second).Milliseconds()),
			GenerateMs:      int(bridge.GenerationTimeout.Milliseconds()),
			SafetyMs:        int((95 * time.Second).Milliseconds()),
		},
	}
}

// Install injects the button manager into a page. Idempotent page-side: a
// second install is a no-op.
func (m *Manager) Install(page *rod.Page) error {
	cfgJSON, err := json.Marshal(m.cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal button config: %w", err)
	}

	if _, err := page.Eval(managerScript, json.RawMessage(cfgJSON)); err != nil {
		return fmt.Errorf("failed to install button manager: %w", err)
	}

	logger.Info("AI button manager installed")
	return nil
}
