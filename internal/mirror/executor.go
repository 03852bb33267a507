package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"mirrorvault/internal/logging"
	"mirrorvault/internal/pairs"
)

// DefaultBinary is the mirroring tool resolved on PATH when none is configured.
const DefaultBinary = "robocopy"

// RunResult is the raw result of one process invocation.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (RunResult, error)
}

// Option configures the executor.
type Option func(*Executor)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(e *Executor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logging.NewComponentLogger(logger, "mirror")
		}
	}
}

// Executor invokes the mirroring tool for one pair at a time.
type Executor struct {
	binary string
	runner Runner
	logger *slog.Logger
}

// New constructs an executor for binary, which must be resolvable on PATH
// unless it is an absolute path.
func New(binary string, opts ...Option) *Executor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	e := &Executor{
		binary: binary,
		runner: commandRunner{},
		logger: logging.NewComponentLogger(nil, "mirror"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Binary returns the configured tool name.
func (e *Executor) Binary() string {
	return e.binary
}

// Execute mirrors source into destination and classifies the result. It
// never returns an error; every problem becomes a Failed outcome.
func (e *Executor) Execute(ctx context.Context, source, destination string, opts pairs.ToolOptions) Outcome {
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	if _, err := os.Stat(source); err != nil {
		logging.ErrorWithContext(logger, "source missing; mirror skipped", "mirror_source_missing",
			logging.String("source", source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "reconnect the source volume or update the pair"),
		)
		return Failure("source does not exist: %s", source)
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		logging.ErrorWithContext(logger, "destination could not be created", "mirror_destination_failed",
			logging.String("destination", destination),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the destination volume is mounted and writable"),
		)
		return Failure("create destination %s: %v", destination, err)
	}

	args := append([]string{source, destination}, BuildArgs(opts)...)
	logger.Info("mirror started",
		logging.String(logging.FieldEventType, "mirror_started"),
		logging.String("source", source),
		logging.String("destination", destination),
		logging.String("command", PreviewCommand(e.binary, source, destination, opts)),
	)

	result, err := e.runner.Run(ctx, e.binary, args)
	if err != nil {
		logging.ErrorWithContext(logger, "mirroring tool could not be run", "mirror_invoke_failed",
			logging.String("binary", e.binary),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "confirm the tool is installed and on PATH (mirrorvault status)"),
		)
		outcome := Failure("run %s: %v", e.binary, err)
		outcome.Duration = time.Since(started)
		return outcome
	}

	kind, message := Classify(result.ExitCode)
	outcome := Outcome{
		Kind:     kind,
		Message:  message,
		ExitCode: result.ExitCode,
		Duration: time.Since(started),
	}
	if kind == Success {
		report := ParseReport(result.Stdout)
		outcome.FilesCopied = report.FilesCopied
		outcome.BytesTransferred = report.BytesTransferred
	}

	if out := strings.TrimSpace(result.Stdout); out != "" {
		logger.Debug("mirror output", logging.String("stdout", out))
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "mirror_finished"),
		logging.String("outcome", kind.String()),
		logging.Int("exit_code", result.ExitCode),
		logging.Int64("files_copied", outcome.FilesCopied),
		logging.Int64("bytes_transferred", outcome.BytesTransferred),
		logging.Duration("duration", outcome.Duration),
	}
	switch kind {
	case Success:
		logger.Info("mirror finished", logging.Args(attrs...)...)
	case Warning:
		logging.WarnWithContext(logger, "mirror finished with warnings", "mirror_warning",
			append(attrs,
				logging.String("detail", message),
				logging.String(logging.FieldImpact, "destination may differ from source"),
				logging.String(logging.FieldErrorHint, "review extra or mismatched items in the destination"),
			)...)
	default:
		errAttrs := append(attrs, logging.String("detail", message))
		if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
			errAttrs = append(errAttrs, logging.String("stderr", stderr))
		}
		logging.ErrorWithContext(logger, "mirror failed", "mirror_failed", errAttrs...)
	}
	return outcome
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, binary string, args []string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcess(cmd)

	err := cmd.Run()
	result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	result.ExitCode = -1
	return result, fmt.Errorf("start %s: %w", binary, err)
}
