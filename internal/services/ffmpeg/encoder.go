// Package ffmpeg wraps the ffmpeg binary behind a narrow encoder API.
// Prefer this package over ad-hoc exec.Command usage when producing
// video artifacts; it owns argument construction, stderr capture, and
// degraded fallbacks.
package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"renderforge/internal/config"
	"renderforge/internal/logging"
	"renderforge/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStderr func(string)) error
}

// Option configures the encoder.
type Option func(*Encoder)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(e *Encoder) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithLogger attaches a logger for encode diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Encoder renders video artifacts with ffmpeg.
type Encoder struct {
	binary    string
	cfg       config.Encode
	extraArgs []string
	exec      Executor
	logger    *slog.Logger
}

// New constructs an encoder from the encode configuration.
func New(cfg config.Encode, opts ...Option) (*Encoder, error) {
	binary := strings.TrimSpace(cfg.FFmpegBinary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "configure", "ffmpeg binary required", nil)
	}
	var extraArgs []string
	if strings.TrimSpace(cfg.ExtraArgs) != "" {
		parsed, err := shlex.Split(cfg.ExtraArgs)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "encode", "configure",
				fmt.Sprintf("extra_args %q is not parseable", cfg.ExtraArgs), err)
		}
		extraArgs = parsed
	}
	encoder := &Encoder{
		binary:    binary,
		cfg:       cfg,
		extraArgs: extraArgs,
		exec:      commandExecutor{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(encoder)
	}
	return encoder, nil
}

// Binary returns the configured ffmpeg binary.
func (e *Encoder) Binary() string {
	return e.binary
}

// Ping verifies the ffmpeg binary is on PATH and runnable.
func (e *Encoder) Ping(ctx context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return services.Wrap(services.ErrConfiguration, "encode", "ping",
			fmt.Sprintf("ffmpeg binary %q not found", e.binary), err)
	}
	if err := e.exec.Run(ctx, e.binary, []string{"-version"}, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "ping", "ffmpeg -version failed", err)
	}
	return nil
}

func (e *Encoder) videoCodecArgs() []string {
	return []string{
		"-c:v", e.cfg.VideoCodec,
		"-preset", e.cfg.Preset,
		"-crf", strconv.Itoa(e.cfg.CRF),
	}
}

func (e *Encoder) audioCodecArgs() []string {
	return []string{
		"-c:a", e.cfg.AudioCodec,
		"-b:a", e.cfg.AudioBitrate,
	}
}

func requireFiles(operation string, paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, "encode", operation,
				fmt.Sprintf("input %s is not readable", path), err)
		}
		if info.IsDir() {
			return services.Wrap(services.ErrValidation, "encode", operation,
				fmt.Sprintf("input %s is a directory", path), nil)
		}
	}
	return nil
}

// stderrTail keeps the last lines of tool output for error reporting.
type stderrTail struct {
	lines []string
}

const stderrTailLimit = 20

func (t *stderrTail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > stderrTailLimit {
		t.lines = t.lines[len(t.lines)-stderrTailLimit:]
	}
}

func (t *stderrTail) String() string {
	return strings.Join(t.lines, "\n")
}

func (e *Encoder) run(ctx context.Context, operation string, args []string) error {
	tail := &stderrTail{}
	if err := e.exec.Run(ctx, e.binary, args, tail.add); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := "ffmpeg failed"
		if output := tail.String(); output != "" {
			detail = "ffmpeg failed: " + output
		}
		return services.Wrap(services.ErrExternalTool, "encode", operation, detail, err)
	}
	return nil
}
