// Package gemini analyzes company text with Gemini using a JSON response schema.
package gemini

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/JakeFAU/company-profiler/internal/enrich"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Config configures the Gemini analyzer.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int32

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Analyzer implements enrich.Analyzer.
type Analyzer struct {
	models    contentGenerator
	model     string
	maxTokens int32
}

// New creates an Analyzer backed by the genai client.
func New(ctx context.Context, cfg Config) (*Analyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return newAnalyzer(client.Models, cfg), nil
}

func newAnalyzer(models contentGenerator, cfg Config) *Analyzer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Analyzer{models: models, model: model, maxTokens: maxTokens}
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"description":     {Type: genai.TypeString},
		"target_audience": {Type: genai.TypeString},
		"market_problem":  {Type: genai.TypeString},
		"product":         {Type: genai.TypeString},
		"business_model":  {Type: genai.TypeString, Enum: enrich.BusinessModels},
		"industry":        {Type: genai.TypeString, Enum: enrich.Industries},
	},
	Required: []string{"description", "business_model", "industry"},
}

// Analyze sends text to Gemini and decodes the structured reply.
func (a *Analyzer) Analyze(ctx context.Context, text string) (enrich.Profile, error) {
	resp, err := a.models.GenerateContent(
		ctx,
		a.model,
		genai.Text("Text to analyze: "+text),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: enrich.Instructions()}}},
			CandidateCount:    1,
			MaxOutputTokens:   a.maxTokens,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    outputSchema,
		},
	)
	if err != nil {
		return enrich.Profile{}, eris.Wrap(err, "gemini: generate content")
	}
	reply := resp.Text()
	if strings.TrimSpace(reply) == "" {
		return enrich.Profile{}, eris.New("gemini: empty response")
	}
	profile, err := enrich.ParseProfile(reply)
	if err != nil {
		return enrich.Profile{}, eris.Wrap(err, "gemini: parse structured json")
	}
	return profile, nil
}
