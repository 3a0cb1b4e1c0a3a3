// Package commands implements the harvest subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/harvest/internal/cli/config"
	"github.com/leapstack-labs/harvest/internal/history"
	"github.com/leapstack-labs/harvest/internal/task"
)

// clientFor builds a protocol client from the loaded configuration.
func clientFor(cmd *cobra.Command) (*task.Client, *config.Config, *slog.Logger) {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())
	return task.NewClient(cfg.ServerURL, logger), cfg, logger
}

// openHistory opens the job history store. History is best-effort: a store
// that cannot be opened is logged and skipped, never fatal to the command.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	dir := filepath.Dir(cfg.HistoryPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Warn("failed to create history directory", "path", dir, "error", err)
			return nil
		}
	}

	store, err := history.Open(cfg.HistoryPath, logger)
	if err != nil {
		logger.Warn("failed to open history database", "path", cfg.HistoryPath, "error", err)
		return nil
	}
	return store
}
