// Package anthropic analyzes company text with Claude through the official SDK.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/JakeFAU/company-profiler/internal/enrich"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-haiku-4-5-20251001"

// Config configures the Claude analyzer.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the API endpoint. Useful for proxies/testing.
	BaseURL string
}

type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Analyzer implements enrich.Analyzer.
type Analyzer struct {
	messages  messageCreator
	model     string
	maxTokens int64
}

// New creates an Analyzer backed by the SDK client.
func New(cfg Config) (*Analyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("anthropic: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdk.NewClient(opts...)
	return newAnalyzer(&client.Messages, cfg), nil
}

func newAnalyzer(messages messageCreator, cfg Config) *Analyzer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Analyzer{messages: messages, model: model, maxTokens: maxTokens}
}

// Analyze sends text to Claude and decodes the JSON profile it returns.
func (a *Analyzer) Analyze(ctx context.Context, text string) (enrich.Profile, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []sdk.TextBlockParam{{Text: enrich.Instructions()}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock("Text to analyze: " + text)),
		},
	}

	msg, err := a.messages.New(ctx, params)
	if err != nil {
		return enrich.Profile{}, eris.Wrap(err, "anthropic: create message")
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return enrich.Profile{}, eris.Errorf("anthropic: message %s has no text content", msg.ID)
	}

	profile, err := enrich.ParseProfile(reply.String())
	if err != nil {
		return enrich.Profile{}, eris.Wrap(err, "anthropic: parse profile")
	}
	return profile, nil
}
