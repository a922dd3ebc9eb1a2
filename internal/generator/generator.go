// Package generator produces comment text for a scraped post via the OpenAI
// chat-completion API, with canned fallback text when the API cannot be
// reached and a daily usage cap enforced through storage.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/commentron/commentron/internal/logger"
	"github.com/commentron/commentron/internal/storage"
)

// Comment settings enums. Stored as strings; unknown values fall back to the
// neutral defaults at prompt-build time.
const (
	GoalNetworking = "networking"
	GoalThought    = "thought_leadership"
	GoalSupport    = "support"

	ToneProfessional = "professional"
	ToneFriendly     = "friendly"
	ToneEnthusiastic = "enthusiastic"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"

	AutopostOn     = "autopost"
	AutopostReview = "manual_review"
)

// UsageKind is the storage usage counter this package increments.
const UsageKind = "generation"

// Request carries everything scraped from a post that the prompt needs.
type Request struct {
	PostText string                  `json:"postText"`
	Author   string                  `json:"author"`
	Settings storage.CommentSettings `json:"settings"`
}

// LimitStatus is the structured daily-cap answer. Over-limit is not an
// error; callers surface it to the user and abort.
type LimitStatus struct {
	Allowed bool `json:"allowed"`
	Limit   int  `json:"limit"`
	Used    int  `json:"used"`
}

// completer is the single seam to the LLM API, so the fallback and prompt
// logic are testable without network.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator builds prompts, calls the API and applies the fallback policy.
type Generator struct {
	llm        completer
	timeout    time.Duration
	fallbacks  []string
	dailyLimit int
	rng        *rand.Rand
}

// Options configures a Generator.
type Options struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	Fallbacks  []string
	DailyLimit int
}

var defaultFallbacks = []string{
	"Great perspective, thanks for sharing!",
	"Really insightful post, appreciate you putting this out there.",
	"This resonates. Thanks for sharing your experience!",
}

// New builds a Generator backed by the OpenAI API.
func New(opts Options) *Generator {
	fallbacks := opts.Fallbacks
	if len(fallbacks) == 0 {
		fallbacks = defaultFallbacks
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &Generator{
		llm:        newOpenAIClient(opts.APIKey, opts.Model),
		timeout:    timeout,
		fallbacks:  fallbacks,
		dailyLimit: opts.DailyLimit,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate returns comment text for the request. Transport failures degrade
// to fallback text rather than surfacing to the automated flow; the fallback
// flag tells callers which one they got.
func (g *Generator) Generate(ctx context.Context, req Request) (text string, fallback bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := "You write brief, authentic LinkedIn comments. Never use hashtags or emoji. Reply with the comment text only."
	user := g.buildPrompt(req)

	out, err := g.llm.Complete(ctx, system, user)
	if err != nil {
		logger.Warn("comment generation failed, using fallback", "error", err)
		return g.Fallback(), true, nil
	}

	out = strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if out == "" {
		return g.Fallback(), true, nil
	}
	return out, false, nil
}

// Fallback returns one of the canned comments.
func (g *Generator) Fallback() string {
	return g.fallbacks[g.rng.Intn(len(g.fallbacks))]
}

// CheckDailyLimit reports whether another generation is allowed today.
func (g *Generator) CheckDailyLimit() (LimitStatus, error) {
	used, err := storage.DailyUsage(UsageKind)
	if err != nil {
		return LimitStatus{}, fmt.Errorf("failed to read daily usage: %w", err)
	}
	return LimitStatus{
		Allowed: used < g.dailyLimit,
		Limit:   g.dailyLimit,
		Used:    used,
	}, nil
}

// RecordUse counts one generation toward today's cap.
func (g *Generator) RecordUse() error {
	return storage.RecordUsage(UsageKind)
}

func (g *Generator) buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Write a comment for this LinkedIn post")
	if req.Author != "" {
		fmt.Fprintf(&b, " by %s", req.Author)
	}
	b.WriteString(".\n\n")

	fmt.Fprintf(&b, "Post:\n%s\n\n", strings.TrimSpace(req.PostText))

	s := req.Settings
	switch s.Goal {
	case GoalThought:
		b.WriteString("Goal: add a substantive observation that shows expertise.\n")
	case GoalSupport:
		b.WriteString("Goal: encourage and support the author.\n")
	default:
		b.WriteString("Goal: start a genuine professional conversation.\n")
	}

	switch s.Tone {
	case ToneFriendly:
		b.WriteString("Tone: warm and friendly.\n")
	case ToneEnthusiastic:
		b.WriteString("Tone: upbeat and enthusiastic.\n")
	default:
		b.WriteString("Tone: professional.\n")
	}

	switch s.Length {
	case LengthShort:
		b.WriteString("Length: one sentence.\n")
	case LengthLong:
		b.WriteString("Length: three to four sentences.\n")
	default:
		b.WriteString("Length: two sentences.\n")
	}

	if s.Expertise != "" {
		fmt.Fprintf(&b, "Comment from the perspective of someone experienced in %s.\n", s.Expertise)
	}

	return b.String()
}

// openaiClient adapts the official SDK to the completer seam.
type openaiClient struct {
	client openai.Client
	model  string
}

func newOpenAIClient(apiKey, model string) *openaiClient {
	return &openaiClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *openaiClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
