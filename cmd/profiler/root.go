package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "profiler",
		Short: "Scrapes company homepages and stores a description for each.",
		Long: `profiler reads a batch of companies that still lack a description,
renders each homepage in an isolated browser session, extracts the visible
text, optionally summarizes it with a language model, and writes the result
back to the company store.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (env vars with PROFILER_ prefix override it)")
	cmd.AddCommand(newRunCmd(opts))
	return cmd
}
