package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/harvest/internal/cli/config"
	"github.com/leapstack-labs/harvest/internal/schema"
	"github.com/leapstack-labs/harvest/internal/task"
	"github.com/leapstack-labs/harvest/internal/view"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	var (
		columns []string
		types   []string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "extract [query...]",
		Short: "Submit an extraction query and follow its progress",
		Long: `Submit a natural-language query to the extraction service, follow job
progress live, and print the resulting table when the job completes.

Each --column names a value to extract from every relevant patent table;
--type tags the column at the same position as TEXT or NUMERIC.`,
		Example: `  harvest extract "lithium battery cathodes" -c Material -c Capacity -t TEXT -t NUMERIC
  harvest extract "solar cell efficiency" -c Efficiency --plain -o csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, strings.Join(args, " "), columns, types, outFile)
		},
	}

	cmd.Flags().StringArrayVarP(&columns, "column", "c", nil, "Column to extract (repeatable)")
	cmd.Flags().StringArrayVarP(&types, "type", "t", nil, "Column type, TEXT or NUMERIC, aligned with --column")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the raw CSV artifact to this file")

	return cmd
}

func runExtract(cmd *cobra.Command, query string, columns, types []string, outFile string) error {
	client, cfg, logger := clientFor(cmd)

	if len(columns) == 0 {
		return errors.New("at least one --column is required")
	}
	if len(types) > len(columns) {
		return errors.New("more --type flags than --column flags")
	}

	s := schema.New()
	for i, name := range columns {
		typ := schema.TypeText
		if i < len(types) {
			typ = schema.ParseType(types[i])
		}
		if !s.AddNamed(name, typ) {
			return fmt.Errorf("invalid or duplicate column name %q", name)
		}
	}

	var recorder task.Recorder
	if store := openHistory(cfg, logger); store != nil {
		defer func() { _ = store.Close() }()
		recorder = store
	}

	ctrl := task.New(client, task.Config{
		PollInterval: cfg.PollInterval,
		AnimInterval: cfg.AnimInterval,
		ErrorDisplay: cfg.ErrorDisplay,
		Logger:       logger,
		Recorder:     recorder,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go ctrl.Run(ctx)

	req := task.SubmitRequest{Query: query, Columns: columns, Types: typeTags(s)}
	if err := ctrl.Submit(ctx, req); err != nil {
		return err
	}

	if cfg.Plain {
		return followPlain(cmd, ctrl, cfg, outFile)
	}
	return followTUI(cmd, ctrl, s, cfg, outFile)
}

// typeTags returns the wire type tag for every user column, in order.
func typeTags(s *schema.Model) []string {
	cols := s.UserColumns()
	tags := make([]string, len(cols))
	for i, c := range cols {
		tags[i] = c.Type.String()
	}
	return tags
}

// followTUI runs the live progress table until the job reaches a terminal
// state, then renders the result.
func followTUI(cmd *cobra.Command, ctrl *task.Controller, s *schema.Model, cfg *config.Config, outFile string) error {
	m := view.NewModel(view.NewTableModel(s), ctrl.Events())
	p := tea.NewProgram(m, tea.WithContext(cmd.Context()))

	final, err := p.Run()
	if err != nil {
		return err
	}

	fm, ok := final.(view.Model)
	if !ok {
		return nil
	}
	if msg := fm.Failure(); msg != "" {
		return errors.New(msg)
	}
	if done := fm.Completed(); done != nil {
		return emitResult(cmd, done, cfg.Output, outFile)
	}
	return nil
}

// followPlain consumes the event stream as log-style lines, for pipes and
// terminals where the live table is unwanted.
func followPlain(cmd *cobra.Command, ctrl *task.Controller, cfg *config.Config, outFile string) error {
	errw := cmd.ErrOrStderr()
	var lastAction string

	for event := range ctrl.Events() {
		switch event := event.(type) {
		case task.InventoryEvent:
			fmt.Fprintf(errw, "Found %d tables\n", len(event.Items))

		case task.ProgressEvent:
			if action := event.Snapshot.CurrentAction; action != "" && action != lastAction {
				fmt.Fprintln(errw, action)
				lastAction = action
			}
			for _, ch := range event.Changes {
				if !ch.Status.Loading() {
					fmt.Fprintf(errw, "table %s: %s\n", ch.UID, ch.Status)
				}
			}

		case task.CompletedEvent:
			return emitResult(cmd, &event, cfg.Output, outFile)

		case task.FailedEvent:
			return errors.New(event.Message)

		case task.ClearedEvent:
			return nil
		}
	}
	return nil
}

// emitResult prints the terminal outcome: either the trivial-completion
// message or the decoded table, optionally saving the raw artifact.
func emitResult(cmd *cobra.Command, done *task.CompletedEvent, format, outFile string) error {
	out := cmd.OutOrStdout()

	if done.Message != "" && len(done.Data) == 0 {
		fmt.Fprintln(out, view.PrefixOK+done.Message)
		return nil
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, done.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved artifact to %s\n", outFile)
	}

	return view.RenderResult(out, done.Table, format)
}
