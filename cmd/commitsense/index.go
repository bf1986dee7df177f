package main

import (
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "index <project-id>",
		Short: "Build or refresh the embedding index for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.indexer.IndexRepository(cmd.Context(), id)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	return cmd
}
