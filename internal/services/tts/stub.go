package tts

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"renderforge/internal/services"
)

// Stub writes a silent placeholder track instead of calling an engine. It
// keeps the pipeline runnable on hosts without a synthesis backend and
// serves as the tail of a fallback chain.
type Stub struct {
	sampleRate int
}

// NewStub builds a stub synthesizer.
func NewStub() *Stub {
	return &Stub{sampleRate: 16000}
}

// Name identifies the backend in logs and errors.
func (s *Stub) Name() string { return "stub" }

// Synthesize writes a silent WAV sized to a rough reading pace of the
// script, so downstream stages see a plausible duration.
func (s *Stub) Synthesize(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return services.Wrap(services.ErrValidation, "voice", "synthesize", "text is empty", nil)
	}

	duration := readingDuration(req.Text)
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.Create(req.OutputPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	return writeSilentWAV(out, s.sampleRate, duration)
}

// Ping always succeeds; the stub has no external dependency.
func (s *Stub) Ping(ctx context.Context) error {
	return ctx.Err()
}

// readingDuration estimates speech length at roughly 150 words per minute,
// clamped so tiny and huge scripts still produce workable files.
func readingDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(words) * time.Minute / 150
	if d < time.Second {
		return time.Second
	}
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}

// writeSilentWAV emits a minimal PCM16 mono WAV of silence.
func writeSilentWAV(out *os.File, sampleRate int, duration time.Duration) error {
	samples := int(float64(sampleRate) * duration.Seconds())
	dataSize := samples * 2

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := out.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	silence := make([]byte, 32*1024)
	for remaining := dataSize; remaining > 0; {
		chunk := len(silence)
		if remaining < chunk {
			chunk = remaining
		}
		if _, err := out.Write(silence[:chunk]); err != nil {
			return fmt.Errorf("write wav data: %w", err)
		}
		remaining -= chunk
	}
	return nil
}
