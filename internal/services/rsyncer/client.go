package rsyncer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Syncer mirrors a directory tree into an archive location.
type Syncer interface {
	Mirror(ctx context.Context, src, dest string, onOutput func(string)) error
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

// CLI wraps the rsync command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "rsync"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Mirror copies src into dest recursively, preserving attributes. The source
// path carries no trailing slash, so rsync recreates the source directory
// itself underneath dest.
func (c *CLI) Mirror(ctx context.Context, src, dest string, onOutput func(string)) error {
	if strings.TrimSpace(src) == "" {
		return errors.New("source path required")
	}
	if strings.TrimSpace(dest) == "" {
		return errors.New("destination path required")
	}

	args := []string{"--progress", "-avhr", strings.TrimSuffix(src, "/"), dest}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start rsync: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if onOutput != nil {
			onOutput(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("rsync failed: %w", err)
	}
	return nil
}

var _ Syncer = (*CLI)(nil)
