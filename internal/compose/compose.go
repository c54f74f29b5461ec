package compose

import (
	"fmt"
	"strings"

	"renderforge/internal/services"
)

// Inputs describes the media tracks feeding one composition. VideoPath and
// VoicePath are mandatory; background and music are optional layers.
type Inputs struct {
	VideoPath      string
	BackgroundPath string
	VoicePath      string
	MusicPath      string

	VoiceVolume float64
	MusicVolume float64

	// Overlay dimensions the foreground video is scaled to when a
	// background is present.
	Width  int
	Height int
}

// Kind discriminates composition operations.
type Kind string

const (
	KindScale   Kind = "scale"
	KindOverlay Kind = "overlay"
	KindGain    Kind = "gain"
	KindMix     Kind = "mix"
)

// Stream identifies an operation input or a pass output: either a demuxer
// pad like "1:a" or the labeled output of an earlier operation.
type Stream struct {
	Pad   string
	Label string
}

// Pad selects a stream of the given kind from demuxer input index.
func Pad(index int, kind string) Stream {
	return Stream{Pad: fmt.Sprintf("%d:%s", index, kind)}
}

// Label refers to the named output of an earlier operation.
func Label(name string) Stream {
	return Stream{Label: name}
}

// Op is one composition step. Sources are consumed in order and Output
// names the stream the operation produces. Only the parameters of the
// operation's Kind are meaningful.
type Op struct {
	Kind    Kind
	Sources []Stream
	Output  string

	Width  int     // scale
	Height int     // scale
	Volume float64 // gain

	DropoutTransition int // mix
}

// Graph is a fully resolved composition plan split into the two encoder
// passes: a video pass that flattens the visual layers, and an audio pass
// that muxes the sound onto the composed video. Each pass is an ordered
// operation list plus the stream it delivers; turning operations into
// encoder arguments is the encode service's job. Building a graph never
// touches the filesystem, so graphs are cheap to construct and compare in
// tests.
//
// Video pads index into VideoInputs. Audio pads assume the composed video
// occupies input 0 of the mux invocation and AudioInputs follow it in
// order.
type Graph struct {
	VideoInputs []string
	VideoOps    []Op
	VideoOut    Stream

	AudioInputs []string
	AudioOps    []Op
	AudioOut    Stream
}

// MixesAudio reports whether the graph blends two audio tracks.
func (g Graph) MixesAudio() bool {
	for _, op := range g.AudioOps {
		if op.Kind == KindMix {
			return true
		}
	}
	return false
}

// Build resolves the composition plan for the given inputs. The same
// inputs always produce the same graph.
//
// With a background, the foreground video is scaled and overlaid on it.
// Every audio track gets a gain op, the voice track even at unit volume;
// a lone voice track is never run through a mixer.
func Build(in Inputs) (Graph, error) {
	if strings.TrimSpace(in.VideoPath) == "" {
		return Graph{}, services.Wrap(services.ErrValidation, "compose", "build", "video input is required", nil)
	}
	if strings.TrimSpace(in.VoicePath) == "" {
		return Graph{}, services.Wrap(services.ErrValidation, "compose", "build", "voice input is required", nil)
	}
	if in.VoiceVolume < 0 || in.MusicVolume < 0 {
		return Graph{}, services.Wrap(services.ErrValidation, "compose", "build", "volumes must not be negative", nil)
	}
	if in.Width <= 0 || in.Height <= 0 {
		return Graph{}, services.Wrap(services.ErrValidation, "compose", "build", "overlay dimensions must be positive", nil)
	}

	var g Graph

	if in.BackgroundPath != "" {
		g.VideoInputs = []string{in.BackgroundPath, in.VideoPath}
		g.VideoOps = []Op{
			{Kind: KindScale, Sources: []Stream{Pad(1, "v")}, Output: "scaled", Width: in.Width, Height: in.Height},
			{Kind: KindOverlay, Sources: []Stream{Pad(0, "v"), Label("scaled")}, Output: "vout"},
		}
		g.VideoOut = Label("vout")
	} else {
		g.VideoInputs = []string{in.VideoPath}
		g.VideoOut = Pad(0, "v")
	}

	// The mux pass places the composed video at input 0, so the voice
	// track is always input 1 and music, when present, input 2.
	g.AudioInputs = []string{in.VoicePath}
	if in.MusicPath != "" {
		g.AudioInputs = append(g.AudioInputs, in.MusicPath)
		g.AudioOps = []Op{
			{Kind: KindGain, Sources: []Stream{Pad(1, "a")}, Output: "aud1", Volume: in.VoiceVolume},
			{Kind: KindGain, Sources: []Stream{Pad(2, "a")}, Output: "aud2", Volume: in.MusicVolume},
			{Kind: KindMix, Sources: []Stream{Label("aud1"), Label("aud2")}, Output: "aout", DropoutTransition: 3},
		}
	} else {
		g.AudioOps = []Op{
			{Kind: KindGain, Sources: []Stream{Pad(1, "a")}, Output: "aout", Volume: in.VoiceVolume},
		}
	}
	g.AudioOut = Label("aout")

	return g, nil
}
