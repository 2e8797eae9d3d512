package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tomopipe/internal/logging"
	"tomopipe/internal/reconstruction"
	"tomopipe/internal/services"
)

func newReconstructCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconstruct [pipeline parameters]",
		Short: "Wait for acquisition metadata and launch batch reconstruction",
		Long: "Waits for an mdoc metadata file to appear under the acquisition " +
			"directory, renders the batch reconstruction master command and " +
			"directive files, and starts the series watcher detached.",
		Args: cobra.ExactArgs(reconstruction.ParamCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := reconstruction.ParseParams(args)
			if err != nil {
				return err
			}

			cfg := ctx.configValue()
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			// Reconstruction has no ledger run id; a correlation id keeps log
			// lines attributable when several launches share a log file.
			runCtx := services.WithRequestID(signalCtx, uuid.NewString())

			launcher, err := reconstruction.NewLauncher(cfg, logger)
			if err != nil {
				return err
			}
			if err := launcher.Run(runCtx, params); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Series watcher launched for %s\n", params.OutputDir)
			return nil
		},
	}
	// Several positionals are negative numbers (defocus range); without this
	// cobra would reject them as unknown flags.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
