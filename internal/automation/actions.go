package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commentron/commentron/internal/bridge"
	"github.com/commentron/commentron/internal/generator"
	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/storage"
)

// generationReply is the wire shape of both generate actions' replies.
type generationReply struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// RegisterActions installs the runtime-message handlers on a dispatcher.
// These are the backend halves of the page scripts' sendMessage calls.
func RegisterActions(d *bridge.Dispatcher, gen *generator.Generator, defaults storage.CommentSettings) {
	d.Handle(bridge.ActionCheckDailyLimit, func(ctx context.Context, payload json.RawMessage) (any, error) {
		return gen.CheckDailyLimit()
	})

	d.Handle(bridge.ActionGetCommentSettings, func(ctx context.Context, payload json.RawMessage) (any, error) {
		return storage.GetCommentSettings(defaults)
	})

	// generateAIComment carries only the scraped post; settings come from
	// storage. The manual button flow uses this one.
	d.Handle(bridge.ActionGenerateAIComment, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var post struct {
			PostText string `json:"postText"`
			Author   string `json:"author"`
		}
		if err := json.Unmarshal(payload, &post); err != nil {
			return nil, fmt.Errorf("bad generate payload: %w", err)
		}

		settings, err := storage.GetCommentSettings(defaults)
		if err != nil {
			logger.Warn("failed to load comment settings, using defaults", "error", err)
			settings = defaults
		}

		text, fallback, err := gen.Generate(ctx, generator.Request{
			PostText: post.PostText,
			Author:   post.Author,
			Settings: settings,
		})
		if err != nil {
			return nil, err
		}
		return generationReply{Text: text, Fallback: fallback}, nil
	})

	// generateCommentFromContent carries the settings inline; empty settings
	// fall back to storage. The automated flow uses this one.
	d.Handle(bridge.ActionGenerateFromContent, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req generator.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("bad generate payload: %w", err)
		}
		if req.Settings == (storage.CommentSettings{}) {
			settings, err := storage.GetCommentSettings(defaults)
			if err != nil {
				settings = defaults
			}
			req.Settings = settings
		}

		text, fallback, err := gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return generationReply{Text: text, Fallback: fallback}, nil
	})

	d.Handle(bridge.ActionIncrementDailyCount, func(ctx context.Context, payload json.RawMessage) (any, error) {
		if err := gen.RecordUse(); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	d.Handle(bridge.ActionAuthComplete, func(ctx context.Context, payload json.RawMessage) (any, error) {
		logger.Info("page signalled auth complete")
		return map[string]bool{"ok": true}, nil
	})
}
