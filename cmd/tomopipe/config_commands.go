package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tomopipe/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set paths.scan_dir and the external tool names before running tomopipe.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Config path: %s (exists: %s)\n\n", ctx.configPath, yesNo(ctx.configExists))

			printSection(out, "paths")
			printSetting(out, "scan_dir", cfg.Paths.ScanDir)
			printSetting(out, "state_dir", cfg.Paths.StateDir)
			printSetting(out, "log_dir", cfg.Paths.LogDir)

			printSection(out, "reconstruction")
			printSetting(out, "mdoc_poll_interval", strconv.Itoa(cfg.Reconstruction.MdocPollInterval))
			printSetting(out, "mdoc_wait_timeout", strconv.Itoa(cfg.Reconstruction.MdocWaitTimeout))

			printSection(out, "halfsets")
			printSetting(out, "bin_factor", strconv.Itoa(cfg.Halfsets.BinFactor))
			printSetting(out, "gpu", strconv.Itoa(cfg.Halfsets.GPU))
			printSetting(out, "fake_sirt_iterations", strconv.Itoa(cfg.Halfsets.FakeSIRTIterations))
			printSetting(out, "step_timeout", strconv.Itoa(cfg.Halfsets.StepTimeout))

			printSection(out, "denoise")
			printSetting(out, "training_pairs", strconv.Itoa(cfg.Denoise.TrainingPairs))
			printSetting(out, "evens_suffix", cfg.Denoise.EvensSuffix)
			printSetting(out, "odds_suffix", cfg.Denoise.OddsSuffix)
			printSetting(out, "extension", cfg.Denoise.Extension)
			printSetting(out, "model_selection", cfg.Denoise.ModelSelection)
			printSetting(out, "gpu", strconv.Itoa(cfg.Denoise.GPU))
			printSetting(out, "num_workers", strconv.Itoa(cfg.Denoise.NumWorkers))
			printSetting(out, "epochs", strconv.Itoa(cfg.Denoise.Epochs))
			printSetting(out, "batch_size", strconv.Itoa(cfg.Denoise.BatchSize))
			printSetting(out, "learning_rate", strconv.FormatFloat(cfg.Denoise.LearningRate, 'f', -1, 64))
			printSetting(out, "subtomo_size", strconv.Itoa(cfg.Denoise.SubtomoSize))

			printSection(out, "tools")
			printSetting(out, "subm", cfg.Tools.Subm)
			printSetting(out, "trimvol", cfg.Tools.Trimvol)
			printSetting(out, "serieswatcher", cfg.Tools.SeriesWatcher)
			printSetting(out, "ddw", cfg.Tools.DDW)
			printSetting(out, "rsync", cfg.Tools.Rsync)

			printSection(out, "archive")
			printSetting(out, "root", cfg.Archive.Root)

			printSection(out, "notifications")
			printSetting(out, "ntfy_topic", cfg.Notifications.NtfyTopic)
			printSetting(out, "request_timeout", strconv.Itoa(cfg.Notifications.RequestTimeout))
			printSetting(out, "run_events", yesNo(cfg.Notifications.RunEvents))
			printSetting(out, "errors", yesNo(cfg.Notifications.Errors))

			printSection(out, "logging")
			printSetting(out, "format", cfg.Logging.Format)
			printSetting(out, "level", cfg.Logging.Level)
			printSetting(out, "retention_days", strconv.Itoa(cfg.Logging.RetentionDays))

			return nil
		},
	}
}

func printSection(w io.Writer, name string) {
	fmt.Fprintf(w, "[%s]\n", name)
}

func printSetting(w io.Writer, key, value string) {
	if value == "" {
		value = `""`
	}
	fmt.Fprintf(w, "  %-22s %s\n", key+":", value)
}
