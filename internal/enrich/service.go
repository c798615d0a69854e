package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/logging"
)

// ErrEmptyProfile is returned when the model produced no usable description.
var ErrEmptyProfile = errors.New("empty profile")

// Analyzer is one language model provider.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Profile, error)
}

// Options bound each enrichment call.
type Options struct {
	MaxInputChars int
	Timeout       time.Duration
}

// Service implements company.Enricher on top of an Analyzer.
type Service struct {
	analyzer Analyzer
	opts     Options
	logger   *zap.Logger
}

// NewService wires a Service. Zero options default to 3000 chars and 60s.
func NewService(analyzer Analyzer, opts Options, logger *zap.Logger) *Service {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = 3000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Service{analyzer: analyzer, opts: opts, logger: logging.Named(logger, "enrich")}
}

// Enrich analyzes text and returns the formatted profile.
func (s *Service) Enrich(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("enrich: %w", ErrEmptyProfile)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	profile, err := s.analyzer.Analyze(ctx, Truncate(text, s.opts.MaxInputChars))
	if err != nil {
		return "", fmt.Errorf("enrich: %w", err)
	}
	profile = profile.Normalize()
	if profile.Description == "" {
		return "", fmt.Errorf("enrich: %w", ErrEmptyProfile)
	}
	s.logger.Debug("profile generated",
		zap.String("business_model", profile.BusinessModel),
		zap.String("industry", profile.Industry),
	)
	return profile.Format(), nil
}
