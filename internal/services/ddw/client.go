package ddw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Runner defines the DeepDeWedge steps driven through the ddw CLI.
type Runner interface {
	FitModel(ctx context.Context, configPath string, onOutput func(string)) error
	RefineTomogram(ctx context.Context, configPath string, onOutput func(string)) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ddw command-line denoiser. Unlike the IMOD tools, ddw reports
// failure through its exit code, so no transcript classification is needed.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ddw"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// FitModel trains the denoising model described by the config document.
func (c *CLI) FitModel(ctx context.Context, configPath string, onOutput func(string)) error {
	return c.run(ctx, "fit-model", configPath, onOutput)
}

// RefineTomogram denoises every tomogram listed in the config document.
func (c *CLI) RefineTomogram(ctx context.Context, configPath string, onOutput func(string)) error {
	return c.run(ctx, "refine-tomogram", configPath, onOutput)
}

func (c *CLI) run(ctx context.Context, subcommand, configPath string, onOutput func(string)) error {
	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		return errors.New("config path required")
	}

	args := []string{subcommand, "--config", configPath}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ddw: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onOutput != nil {
			onOutput(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ddw output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ddw %s failed: %w", subcommand, err)
	}
	return nil
}

var _ Runner = (*CLI)(nil)
