package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tomopipe/internal/config"
	"tomopipe/internal/denoise"
	"tomopipe/internal/halfsets"
	"tomopipe/internal/logging"
	"tomopipe/internal/queue"
)

const runLogStampLayout = "20060102_1504"

type batchDriverFunc func(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, mode, root string) (*queue.Run, error)

type batchSpec struct {
	use   string
	short string
	long  string
	kind  string
	run   batchDriverFunc
}

func newHalfsetsCommand(ctx *commandContext) *cobra.Command {
	return newBatchCommand(ctx, batchSpec{
		use:   "halfsets MODE [DIR]",
		short: "Generate even/odd half tomograms for every dataset under a root",
		long: "Discovers dataset directories under DIR (default: the configured " +
			"scan root), renders alignment and per-half reconstruction job files, " +
			"runs the external steps per dataset, collects the outputs into " +
			"halfsets/ subdirectories, and mirrors them to the archive. MODE 1 " +
			"hands the root off to a detached denoise run afterwards; MODE 0 stops " +
			"after the half sets.",
		kind: queue.RunKindHalfsets,
		run: func(runCtx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, mode, root string) (*queue.Run, error) {
			driver, err := halfsets.NewDriver(cfg, store, logger)
			if err != nil {
				return nil, err
			}
			return driver.Run(runCtx, mode, root)
		},
	})
}

func newDenoiseCommand(ctx *commandContext) *cobra.Command {
	return newBatchCommand(ctx, batchSpec{
		use:   "denoise MODE [DIR]",
		short: "Train a denoising model on half-set pairs and refine every tomogram",
		long: "Locates even/odd half-set pairs under DIR (default: the configured " +
			"scan root), samples a training subset, fits the external denoising " +
			"model, selects the best checkpoint, and refines all tomograms with " +
			"it. MODE is accepted for pipeline symmetry; both values run the same " +
			"steps.",
		kind: queue.RunKindDenoise,
		run: func(runCtx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, mode, root string) (*queue.Run, error) {
			driver, err := denoise.NewDriver(cfg, store, logger)
			if err != nil {
				return nil, err
			}
			return driver.Run(runCtx, mode, root)
		},
	})
}

func newBatchCommand(ctx *commandContext, spec batchSpec) *cobra.Command {
	return &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Long:  spec.long,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(args[0])
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			root, err := resolveBatchRoot(cfg, args)
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire batch lock: %w", err)
			}
			if !ok {
				return errors.New("another tomopipe batch run is already in progress")
			}
			defer func() { _ = lock.Unlock() }()

			runLogPath := filepath.Join(root, time.Now().Format(runLogStampLayout)+"_"+spec.kind+".log")
			logger, err := logging.NewFromConfig(cfg, runLogPath)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
				logging.RetentionTarget{Dir: root, Pattern: "*_halfsets.log", Exclude: []string{runLogPath}},
				logging.RetentionTarget{Dir: root, Pattern: "*_denoise.log", Exclude: []string{runLogPath}},
			)

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			run, err := spec.run(signalCtx, cfg, store, logger, mode, root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s run %s: %d completed, %d failed, %d skipped\n",
				formatStatusLabel(run.Kind), run.Status, run.Completed, run.Failed, run.Skipped)
			fmt.Fprintf(out, "Run log: %s\n", runLogPath)
			if run.Failed > 0 {
				fmt.Fprintln(out, "Some datasets failed; run 'tomopipe status' for details")
			}
			return nil
		},
	}
}

func parseMode(arg string) (string, error) {
	switch strings.TrimSpace(arg) {
	case "0":
		return queue.ModeStandalone, nil
	case "1":
		return queue.ModePipeline, nil
	default:
		return "", fmt.Errorf("MODE must be 0 (standalone) or 1 (pipeline), got %q", arg)
	}
}

func resolveBatchRoot(cfg *config.Config, args []string) (string, error) {
	root := ""
	if len(args) > 1 {
		root = strings.TrimSpace(args[1])
	}
	if root == "" {
		root = strings.TrimSpace(cfg.Paths.ScanDir)
	}
	if root == "" {
		return "", errors.New("no directory given and paths.scan_dir is not configured")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve directory %q: %w", root, err)
	}
	return abs, nil
}
