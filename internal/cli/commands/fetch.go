package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/harvest/internal/tabular"
	"github.com/leapstack-labs/harvest/internal/view"
)

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "fetch <task-id>",
		Short: "Download the result artifact of a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, _ := clientFor(cmd)

			data, err := client.FetchResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write artifact: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved artifact to %s\n", outFile)
				return nil
			}

			return view.RenderResult(cmd.OutOrStdout(), tabular.Decode(string(data)), cfg.Output)
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "Write the raw CSV artifact to this file instead of rendering it")

	return cmd
}
