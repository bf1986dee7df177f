// Package main is the entry point for the commitsense CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commitsense",
		Short: "Commit summarization and repository indexing server",
		Long: `Commitsense polls Git hosting providers for new commits, summarizes
them with an AI endpoint, and maintains a chunked embedding index of
repository contents.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(pollCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}
