package commands

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/harvest/internal/cli/config"
	"github.com/leapstack-labs/harvest/internal/stub"
)

// NewServeCommand creates the serve command, which runs the simulated
// extraction service for local development.
func NewServeCommand() *cobra.Command {
	var (
		port        int
		discoverFor time.Duration
		stepEvery   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a simulated extraction service for local development",
		Long: `Run an in-process extraction service that fabricates jobs advancing on a
fixed schedule. Point the client at it to exercise the full submit, poll
and fetch cycle without the real backend.

Scripted queries: a query containing "reject" is refused, "nothing"
completes trivially, and "fail" errors after processing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if config.GetCurrentConfig().Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := stub.NewServer(stub.Config{
				Port:        port,
				Logger:      logger,
				DiscoverFor: discoverFor,
				StepEvery:   stepEvery,
			})
			return server.Serve(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8600, "Port to listen on")
	cmd.Flags().DurationVar(&discoverFor, "discover-for", 0, "How long simulated jobs report discovering")
	cmd.Flags().DurationVar(&stepEvery, "step-every", 0, "Interval between simulated table completions")

	return cmd
}
