package wav2lip

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"renderforge/internal/services"
)

// stubFrameCap bounds how many placeholder frames the stub writes so a
// long script does not flood the staging directory.
const stubFrameCap = 250

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Stub fabricates a frame sequence sized to the audio duration.
type Stub struct{}

// NewStub builds a stub syncer.
func NewStub() *Stub {
	return &Stub{}
}

// Name identifies the backend in logs and errors.
func (s *Stub) Name() string { return "stub" }

// Sync writes numbered placeholder frames matching the audio length at
// the requested frame rate.
func (s *Stub) Sync(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.FPS <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "lipsync", "sync", "fps must be positive", nil)
	}
	seconds, err := wavDuration(req.AudioPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "lipsync", "sync",
			fmt.Sprintf("audio file %s is not a usable wav", req.AudioPath), err)
	}

	frames := int(seconds * float64(req.FPS))
	if frames < 1 {
		frames = 1
	}
	if frames > stubFrameCap {
		frames = stubFrameCap
	}

	if err := os.MkdirAll(req.FramesDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create frames directory: %w", err)
	}
	for i := 0; i < frames; i++ {
		name := filepath.Join(req.FramesDir, fmt.Sprintf("frame_%05d.png", i))
		if err := os.WriteFile(name, pngSignature, 0o644); err != nil {
			return Result{}, fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return Result{Frames: frames, FramesDir: req.FramesDir}, nil
}

// Ping always succeeds; the stub has no external dependency.
func (s *Stub) Ping(ctx context.Context) error {
	return ctx.Err()
}

// wavDuration reads a PCM WAV header and returns the play length in
// seconds.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, 44)
	if _, err := f.Read(header); err != nil {
		return 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a wav file")
	}
	byteRate := binary.LittleEndian.Uint32(header[28:32])
	dataSize := binary.LittleEndian.Uint32(header[40:44])
	if byteRate == 0 {
		return 0, fmt.Errorf("wav header has zero byte rate")
	}
	return float64(dataSize) / float64(byteRate), nil
}
