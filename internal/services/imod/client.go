package imod

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Executor abstracts command execution for testability. Commands run with dir
// as their working directory so command files can reference dataset-relative
// paths.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, dir string, onStdout, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the IMOD command-line tools used to build half tomograms.
type Client struct {
	subm        string
	trimvol     string
	stepTimeout time.Duration
	exec        Executor
}

// New constructs an IMOD client from the configured tool names.
func New(subm, trimvol string, stepTimeout time.Duration, opts ...Option) (*Client, error) {
	subm = strings.TrimSpace(subm)
	trimvol = strings.TrimSpace(trimvol)
	if subm == "" {
		return nil, errors.New("subm binary required")
	}
	if trimvol == "" {
		return nil, errors.New("trimvol binary required")
	}
	client := &Client{
		subm:        subm,
		trimvol:     trimvol,
		stepTimeout: stepTimeout,
		exec:        commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Submit runs a command file through subm inside the dataset directory and
// classifies the transcript. onOutput, when provided, receives every line of
// both streams for logging.
func (c *Client) Submit(ctx context.Context, dir, comFile string, onOutput func(string)) error {
	comFile = strings.TrimSpace(comFile)
	if comFile == "" {
		return errors.New("command file required")
	}
	return c.runClassified(ctx, c.subm, []string{comFile}, dir, comFile, onOutput)
}

// Trimvol rotates a reconstructed volume around the X axis, producing the
// final tomogram orientation.
func (c *Client) Trimvol(ctx context.Context, dir, input, output string, onOutput func(string)) error {
	input = strings.TrimSpace(input)
	output = strings.TrimSpace(output)
	if input == "" || output == "" {
		return errors.New("trimvol input and output required")
	}
	return c.runClassified(ctx, c.trimvol, []string{"-rx", input, output}, dir, "trimvol "+input, onOutput)
}

func (c *Client) runClassified(ctx context.Context, binary string, args []string, dir, label string, onOutput func(string)) error {
	runCtx := ctx
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}

	var stdout []string
	collectStdout := func(line string) {
		stdout = append(stdout, line)
		if onOutput != nil {
			onOutput(line)
		}
	}
	forwardStderr := func(line string) {
		if onOutput != nil {
			onOutput(line)
		}
	}

	if err := c.exec.Run(runCtx, binary, args, dir, collectStdout, forwardStderr); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	switch ClassifyOutput(stdout) {
	case OutcomeSuccess:
		return nil
	case OutcomeError:
		if detail := errorDetail(stdout); detail != "" {
			return fmt.Errorf("%s reported an error: %s", label, detail)
		}
		return fmt.Errorf("%s reported an error", label)
	default:
		return fmt.Errorf("%s finished without a completion marker", label)
	}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, dir string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, wrapForward(onStdout))
	go scan(stderr, wrapForward(onStderr))

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

func wrapForward(forward func(string)) func(string) {
	if forward != nil {
		return forward
	}
	return func(line string) {
		fmt.Fprintln(os.Stderr, line)
	}
}
