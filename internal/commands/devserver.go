package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smart-spend/internal/devserver"
)

func addDevServer(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "run the local development backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return devserver.Run(ctx, e.cfg, e.logger)
		},
	}

	topLevel.AddCommand(cmd)
}
