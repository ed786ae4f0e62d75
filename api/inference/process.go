package inference

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type InvocationResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// ProcessClassifier runs an external worker once per image:
//
//	<executable> [args...] <imagePath> <modelDir>
//
// The worker prints one JSON result on stdout and exits 0, or exits
// non-zero with diagnostics on stderr.
type ProcessClassifier struct {
	executable string
	args       []string
	timeout    time.Duration
	logger     *zap.Logger
}

type Option func(*ProcessClassifier)

// WithArgs sets arguments placed before the image path, e.g. a script name.
func WithArgs(args ...string) Option {
	return func(c *ProcessClassifier) { c.args = args }
}

// WithTimeout kills the worker's process group once d has elapsed. Zero
// disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *ProcessClassifier) { c.timeout = d }
}

func NewProcessClassifier(executable string, logger *zap.Logger, opts ...Option) *ProcessClassifier {
	c := &ProcessClassifier{executable: executable, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ProcessClassifier) Classify(ctx context.Context, imagePath, modelDir string) (*ClassificationResult, error) {
	res, err := c.Invoke(ctx, imagePath, modelDir)
	if err != nil {
		return nil, err
	}

	if res.TimedOut || res.ExitCode != 0 {
		return nil, &ExecutionError{
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			TimedOut: res.TimedOut,
		}
	}

	return ParseResult(res.Stdout)
}

// Invoke starts the worker and drains stdout and stderr concurrently until
// both reach EOF, then reaps the process. A non-zero exit is reported in the
// result, not as an error. The worker is not stopped when ctx is cancelled;
// only the configured timeout ends it early.
func (c *ProcessClassifier) Invoke(ctx context.Context, artifactPath, modelDir string) (*InvocationResult, error) {
	runCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.timeout)
		defer cancel()
	}

	args := append(slices.Clone(c.args), artifactPath, modelDir)
	cmd := exec.CommandContext(runCtx, c.executable, args...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{Executable: c.executable, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{Executable: c.executable, Err: err}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Executable: c.executable, Err: err}
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, stderr)
		return err
	})
	readErr := g.Wait()

	// Wait closes the pipes, so it must only run after both readers finish.
	waitErr := cmd.Wait()

	res := &InvocationResult{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		TimedOut: waitErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded),
		Duration: time.Since(start),
	}

	c.logger.Debug("Worker finished",
		zap.String("executable", c.executable),
		zap.String("artifact", artifactPath),
		zap.Int("stdout_bytes", outBuf.Len()),
		zap.Int("stderr_bytes", errBuf.Len()),
		zap.Duration("duration", res.Duration),
	)

	if readErr != nil {
		return res, &StreamError{Err: readErr}
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case res.TimedOut:
		res.ExitCode = -1
	default:
		return res, &StreamError{Err: waitErr}
	}

	return res, nil
}
