package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/config"
	"github.com/JakeFAU/company-profiler/internal/logging"
)

type runOptions struct {
	limit       int
	concurrency int
	enrich      bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one batch of companies",
		Long: `Fetches up to --limit companies with an empty description, extracts
their homepage text with at most --concurrency browser sessions at once, and
persists one description per successfully scraped company.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyRunFlags(cmd, opts, &cfg); err != nil {
				return err
			}
			return runBatch(cmd, cfg)
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "max companies to fetch (overrides pipeline.batch_size)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "max concurrent browser sessions (overrides pipeline.concurrency)")
	cmd.Flags().BoolVar(&opts.enrich, "enrich", false, "summarize page text with the configured language model")
	return cmd
}

// applyRunFlags layers explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, opts *runOptions, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Pipeline.BatchSize = opts.limit
	}
	if flags.Changed("concurrency") {
		cfg.Pipeline.Concurrency = opts.concurrency
	}
	if flags.Changed("enrich") {
		cfg.Enrich.Enabled = opts.enrich
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func runBatch(cmd *cobra.Command, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()
	profiler, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := profiler.Close(); cerr != nil {
			logger.Warn("shutdown error", zap.Error(cerr))
		}
	}()

	report, err := profiler.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", report.RunID, err)
	}
	cmd.Printf("run %s: %d companies, %d persisted, %d failed\n",
		report.RunID, report.Records, report.Stats.Persisted, report.Stats.Failed)
	return nil
}
