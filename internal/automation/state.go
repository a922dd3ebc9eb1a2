// Package automation wires the pieces together: the storage-backed bridge
// state, the action handlers page scripts call, the browser launcher and the
// runner that drives collect-then-engage cycles.
package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/storage"
)

// Keys served over the bridge's storage operations. Page scripts read run
// state through these; everything but the page-state toggle and the comment
// settings is read-only from their side.
const (
	KeyPageState       = "AutomationPageState"
	KeyQuota           = "AutomationQuota"
	KeyPageURNs        = "AutomationPageUrns"
	KeyCompleteMessage = "AutomationCompleteMessage"
	KeyPostAgeLimit    = "AutomationPostAgeLimit"
	KeyCommentSettings = "commentSettings"
)

// Store adapts the storage package to the bridge's key/value surface and the
// collector's run interlock.
type Store struct {
	defaults storage.CommentSettings
}

// NewStore builds a store; defaults fill in when no settings are saved yet.
func NewStore(defaults storage.CommentSettings) *Store {
	return &Store{defaults: defaults}
}

// GetValue serves one storage read. Run-scoped keys answer from the latest
// run so a page that outlives its run still sees the final state.
func (s *Store) GetValue(ctx context.Context, key string) (json.RawMessage, error) {
	switch key {
	case KeyPageState:
		_, active, err := storage.ActiveRun()
		if err != nil {
			return nil, err
		}
		state := "off"
		if active {
			state = "on"
		}
		return json.Marshal(state)

	case KeyQuota:
		run, err := storage.LatestRun()
		if err != nil || run == nil {
			return json.Marshal(0)
		}
		return json.Marshal(run.Quota)

	case KeyPageURNs:
		run, err := storage.LatestRun()
		if err != nil || run == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(run.URNs)

	case KeyCompleteMessage:
		run, err := storage.LatestRun()
		if err != nil || run == nil {
			return json.Marshal("")
		}
		return json.Marshal(run.Message)

	case KeyPostAgeLimit:
		run, err := storage.LatestRun()
		if err != nil || run == nil {
			return json.Marshal("")
		}
		return json.Marshal(run.AgeLimit)

	case KeyCommentSettings:
		settings, err := storage.GetCommentSettings(s.defaults)
		if err != nil {
			return nil, err
		}
		return json.Marshal(settings)

	default:
		return nil, fmt.Errorf("unknown storage key: %s", key)
	}
}

// SetValue serves one storage write. Setting the page state to anything but
// "on" cancels the active run; runs are only ever started through BeginRun.
func (s *Store) SetValue(ctx context.Context, key string, value json.RawMessage) error {
	switch key {
	case KeyPageState:
		var state string
		if err := json.Unmarshal(value, &state); err != nil {
			return fmt.Errorf("bad page state value: %w", err)
		}
		if state == "on" {
			return fmt.Errorf("runs are started by the runner, not by page state")
		}
		id, active, err := storage.ActiveRun()
		if err != nil {
			return err
		}
		if !active {
			return nil
		}
		logger.Info("cancelling active run via page state", "run_id", id)
		return storage.CancelRun(id)

	case KeyCommentSettings:
		var settings storage.CommentSettings
		if err := json.Unmarshal(value, &settings); err != nil {
			return fmt.Errorf("bad comment settings value: %w", err)
		}
		return storage.SaveCommentSettings(settings)

	default:
		return fmt.Errorf("storage key is not writable: %s", key)
	}
}

// ActiveRun implements the collector's interlock.
func (s *Store) ActiveRun() (string, bool, error) {
	return storage.ActiveRun()
}

// SaveURNs persists a run's collected list and registers each post.
func (s *Store) SaveURNs(runID string, urns []string) error {
	if err := storage.SaveRunURNs(runID, urns); err != nil {
		return err
	}
	for _, urn := range urns {
		if err := storage.SavePost(urn); err != nil {
			logger.Warn("failed to register collected post", "urn", urn, "error", err)
		}
	}
	return nil
}
