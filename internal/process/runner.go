package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// waitDelay is how long Run waits for output pipes to close after the
// process has been killed on cancellation.
const waitDelay = 250 * time.Millisecond

// errorPrefix marks a failure reported on stdout with a zero exit status.
const errorPrefix = "ERROR:"

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner executes one invocation of an external tool per call.
//
// Thread Safety: Run may be called concurrently; each call owns its subprocess.
type Runner struct {
	binary string
	logger Logger

	mu    sync.Mutex
	stats Stats
}

// Stats counts invocations since the runner was created.
type Stats struct {
	Binary    string `json:"binary"`
	Calls     uint64 `json:"calls"`
	Failures  uint64 `json:"failures"`
	Timeouts  uint64 `json:"timeouts"`
	LastError string `json:"last_error,omitempty"`
}

// NewRunner creates a runner for the given executable name or path.
func NewRunner(binary string) *Runner {
	return &Runner{
		binary: binary,
		logger: noopLogger{},
		stats:  Stats{Binary: binary},
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Binary returns the executable the runner invokes.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes the tool with args and returns its trimmed stdout.
//
// The context bounds the invocation. When it expires the whole process group
// is killed and ErrTimeout is returned. A non-zero exit, or stdout starting
// with "ERROR:", yields ErrCommandFailed wrapping the tool's message.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec // binary comes from validated config

	// New process group so a hung child of the tool dies with it
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			return err
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	out := strings.TrimSpace(stdout.String())

	err := r.classify(ctx, runErr, out, strings.TrimSpace(stderr.String()))
	r.record(err)

	if err != nil {
		r.logger.Debug("command failed",
			"binary", r.binary,
			"args", args,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", err
	}

	r.logger.Debug("command complete",
		"binary", r.binary,
		"args", args,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// classify maps the outcome of cmd.Run onto the package errors.
func (r *Runner) classify(ctx context.Context, runErr error, stdout, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrTimeout, r.binary)
		}
		return fmt.Errorf("%s cancelled: %w", r.binary, ctxErr)
	}

	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrBinaryNotFound, r.binary)
		}
		msg := firstNonEmpty(stderr, stdout, runErr.Error())
		return fmt.Errorf("%w: %s", ErrCommandFailed, msg)
	}

	if strings.HasPrefix(stdout, errorPrefix) {
		return fmt.Errorf("%w: %s", ErrCommandFailed, strings.TrimSpace(strings.TrimPrefix(stdout, errorPrefix)))
	}

	return nil
}

// record updates the invocation counters.
func (r *Runner) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Calls++
	if err == nil {
		return
	}
	r.stats.Failures++
	if errors.Is(err, ErrTimeout) {
		r.stats.Timeouts++
	}
	r.stats.LastError = err.Error()
}

// Stats returns a snapshot of the invocation counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
