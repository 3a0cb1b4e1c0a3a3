package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/harvest/internal/task"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the current progress snapshot for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, _ := clientFor(cmd)

			snap, err := client.Poll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), args[0], snap)
			return nil
		},
	}
}

func printSnapshot(w io.Writer, taskID string, snap *task.Snapshot) {
	fmt.Fprintf(w, "Task:   %s\n", taskID)
	fmt.Fprintf(w, "Status: %s\n", snap.Status)
	if snap.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", snap.Message)
	}
	if snap.CurrentAction != "" {
		fmt.Fprintf(w, "Action: %s\n", snap.CurrentAction)
	}
	if snap.Status == task.StatusNotFound {
		return
	}

	fmt.Fprintf(w, "Progress: %d/%d files, %d/%d tables (%d relevant), %.0f%%\n",
		snap.Counts.ProcessedFiles, snap.Counts.TotalFiles,
		snap.Counts.ProcessedTables, snap.Counts.TotalTables,
		snap.Counts.RelevantTables, snap.Percentage)

	for _, e := range snap.Errors {
		fmt.Fprintf(w, "Error: %s\n", e)
	}

	if len(snap.Items) == 0 {
		return
	}

	items := make([]task.Item, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.GroupKey != b.GroupKey {
			return a.GroupKey < b.GroupKey
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.UID < b.UID
	})

	fmt.Fprintln(w)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Patent", "Table", "Status"})
	for _, item := range items {
		t.AppendRow(table.Row{item.GroupKey, item.Ordinal, item.Status.String()})
	}
	t.Render()
}
