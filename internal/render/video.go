package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"renderforge/internal/logging"
	"renderforge/internal/payload"
	"renderforge/internal/services"
	"renderforge/internal/services/ffmpeg"
	"renderforge/internal/services/tts"
	"renderforge/internal/stage"
)

// Frame-count clamp for scripted videos, so a runaway script cannot flood
// the staging directory with card frames.
const (
	minCardFrames = 25
	maxCardFrames = 600
	wordsPerMin   = 150
)

// templateColors maps template names to card backgrounds. An unknown
// template falls back to the default card.
var templateColors = map[string]color.RGBA{
	"slides":  {R: 0x1e, G: 0x29, B: 0x3b, A: 0xff},
	"minimal": {R: 0xf5, G: 0xf5, B: 0xf0, A: 0xff},
	"news":    {R: 0x33, G: 0x0a, B: 0x0a, A: 0xff},
}

var defaultCardColor = color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xff}

// VideoAdapter renders scripted videos without an avatar: the script is
// synthesized to a voice track and played over template title cards.
type VideoAdapter struct {
	chain        *tts.Chain
	encoder      *ffmpeg.Encoder
	defaultVoice string
	fps          int
	width        int
	height       int
	stagingDir   string
	outputDir    string
	logger       *slog.Logger
}

// NewVideo constructs the scripted-video stage adapter.
func NewVideo(chain *tts.Chain, encoder *ffmpeg.Encoder, defaultVoice string, fps, width, height int, stagingDir, outputDir string, logger *slog.Logger) *VideoAdapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &VideoAdapter{
		chain:        chain,
		encoder:      encoder,
		defaultVoice: defaultVoice,
		fps:          fps,
		width:        width,
		height:       height,
		stagingDir:   stagingDir,
		outputDir:    outputDir,
		logger:       logger,
	}
}

// Name identifies the stage.
func (a *VideoAdapter) Name() string { return "video" }

// Run synthesizes the script and assembles it with title-card frames.
func (a *VideoAdapter) Run(ctx context.Context, raw json.RawMessage) (stage.Result, error) {
	p, err := payload.ParseVideo(raw)
	if err != nil {
		return stage.Result{}, err
	}

	id := artifactID(ctx)
	voicePath := filepath.Join(a.stagingDir, fmt.Sprintf("voice-%s.wav", id))
	defer func() { _ = os.Remove(voicePath) }()
	backend, err := a.chain.Synthesize(ctx, tts.Request{
		Text:       p.Script,
		VoiceID:    a.defaultVoice,
		OutputPath: voicePath,
	})
	if err != nil {
		return stage.Result{}, err
	}

	cardsDir := filepath.Join(a.stagingDir, fmt.Sprintf("cards-%s", id))
	defer func() { _ = os.RemoveAll(cardsDir) }()
	frames := cardFrameCount(p.Script, a.fps)
	if err := a.writeCardFrames(cardsDir, p.Template, frames); err != nil {
		return stage.Result{}, err
	}

	out := filepath.Join(a.outputDir, fmt.Sprintf("video-%s.mp4", id))
	result, err := a.encoder.FramesToVideo(ctx, cardsDir, a.fps, voicePath, out)
	if err != nil {
		return stage.Result{}, err
	}

	logging.WithContext(ctx, a.logger).Info("scripted video rendered",
		logging.String("backend", backend),
		logging.String("template", p.Template),
		logging.Int("frames", frames),
		logging.String("output", result.OutputPath))
	return stage.Result{
		OutputPath: result.OutputPath,
		Degraded:   result.Degraded,
		Note:       result.Note,
	}, nil
}

// HealthCheck reports readiness of both the synthesis chain and the
// encoder.
func (a *VideoAdapter) HealthCheck(ctx context.Context) stage.Health {
	if err := a.chain.Ping(ctx); err != nil {
		return stage.Unhealthy(a.Name(), services.Message(err))
	}
	if err := a.encoder.Ping(ctx); err != nil {
		return stage.Unhealthy(a.Name(), services.Message(err))
	}
	return stage.Healthy(a.Name())
}

// cardFrameCount sizes the card sequence to the script's reading time.
func cardFrameCount(script string, fps int) int {
	words := len(strings.Fields(script))
	frames := words * 60 * fps / wordsPerMin
	if frames < minCardFrames {
		return minCardFrames
	}
	if frames > maxCardFrames {
		return maxCardFrames
	}
	return frames
}

func (a *VideoAdapter) writeCardFrames(dir, template string, frames int) error {
	card, ok := templateColors[template]
	if !ok {
		card = defaultCardColor
	}

	img := image.NewRGBA(image.Rect(0, 0, a.width, a.height))
	for y := 0; y < a.height; y++ {
		for x := 0; x < a.width; x++ {
			img.SetRGBA(x, y, card)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode card frame: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cards directory: %w", err)
	}
	for i := 0; i < frames; i++ {
		name := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write card frame %d: %w", i, err)
		}
	}
	return nil
}
