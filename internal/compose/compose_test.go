package compose

import (
	"errors"
	"reflect"
	"testing"

	"renderforge/internal/services"
)

func baseInputs() Inputs {
	return Inputs{
		VideoPath:   "/work/avatar.mp4",
		VoicePath:   "/work/voice.wav",
		VoiceVolume: 1.0,
		MusicVolume: 0.4,
		Width:       1280,
		Height:      720,
	}
}

func opsOfKind(ops []Op, kind Kind) []Op {
	var matched []Op
	for _, op := range ops {
		if op.Kind == kind {
			matched = append(matched, op)
		}
	}
	return matched
}

func TestBuildVoiceOnly(t *testing.T) {
	g, err := Build(baseInputs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(g.VideoInputs, []string{"/work/avatar.mp4"}) {
		t.Fatalf("unexpected video inputs %v", g.VideoInputs)
	}
	if !reflect.DeepEqual(g.AudioInputs, []string{"/work/voice.wav"}) {
		t.Fatalf("unexpected audio inputs %v", g.AudioInputs)
	}
	if len(g.VideoOps) != 0 {
		t.Fatalf("single video layer needs no video ops, got %v", g.VideoOps)
	}
	if g.VideoOut != Pad(0, "v") {
		t.Fatalf("unexpected video out %+v", g.VideoOut)
	}

	// The lone voice track still gets its gain op, even at unit volume.
	gains := opsOfKind(g.AudioOps, KindGain)
	if len(g.AudioOps) != 1 || len(gains) != 1 {
		t.Fatalf("expected exactly one gain op, got %v", g.AudioOps)
	}
	gain := gains[0]
	if !reflect.DeepEqual(gain.Sources, []Stream{Pad(1, "a")}) {
		t.Fatalf("gain must read the voice pad, got %v", gain.Sources)
	}
	if gain.Volume != 1.0 {
		t.Fatalf("gain volume = %v, want 1", gain.Volume)
	}
	if g.AudioOut != Label(gain.Output) {
		t.Fatalf("audio out %+v must be the gain output %q", g.AudioOut, gain.Output)
	}
	if g.MixesAudio() {
		t.Fatal("single audio track must not be mixed")
	}
}

func TestBuildWithMusic(t *testing.T) {
	in := baseInputs()
	in.MusicPath = "/work/music.mp3"

	g, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.MixesAudio() {
		t.Fatal("expected a mix op with two audio tracks")
	}

	gains := opsOfKind(g.AudioOps, KindGain)
	if len(gains) != 2 {
		t.Fatalf("expected a gain op per track, got %v", g.AudioOps)
	}
	if gains[0].Volume != 1.0 || !reflect.DeepEqual(gains[0].Sources, []Stream{Pad(1, "a")}) {
		t.Fatalf("unexpected voice gain %+v", gains[0])
	}
	if gains[1].Volume != 0.4 || !reflect.DeepEqual(gains[1].Sources, []Stream{Pad(2, "a")}) {
		t.Fatalf("unexpected music gain %+v", gains[1])
	}

	mixes := opsOfKind(g.AudioOps, KindMix)
	if len(mixes) != 1 {
		t.Fatalf("expected one mix op, got %v", g.AudioOps)
	}
	mix := mixes[0]
	if !reflect.DeepEqual(mix.Sources, []Stream{Label(gains[0].Output), Label(gains[1].Output)}) {
		t.Fatalf("mix must consume both gain outputs, got %v", mix.Sources)
	}
	if mix.DropoutTransition != 3 {
		t.Fatalf("mix dropout transition = %d, want 3", mix.DropoutTransition)
	}
	if g.AudioOut != Label(mix.Output) {
		t.Fatalf("audio out %+v must be the mix output %q", g.AudioOut, mix.Output)
	}
}

func TestBuildWithBackgroundOverlay(t *testing.T) {
	in := baseInputs()
	in.BackgroundPath = "/work/bg.mp4"

	g, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(g.VideoInputs, []string{"/work/bg.mp4", "/work/avatar.mp4"}) {
		t.Fatalf("background must be input zero, got %v", g.VideoInputs)
	}
	if len(g.VideoOps) != 2 {
		t.Fatalf("expected scale then overlay, got %v", g.VideoOps)
	}

	scale := g.VideoOps[0]
	if scale.Kind != KindScale || scale.Width != 1280 || scale.Height != 720 {
		t.Fatalf("unexpected scale op %+v", scale)
	}
	if !reflect.DeepEqual(scale.Sources, []Stream{Pad(1, "v")}) {
		t.Fatalf("scale must read the foreground pad, got %v", scale.Sources)
	}

	overlay := g.VideoOps[1]
	if overlay.Kind != KindOverlay {
		t.Fatalf("unexpected second op %+v", overlay)
	}
	if !reflect.DeepEqual(overlay.Sources, []Stream{Pad(0, "v"), Label(scale.Output)}) {
		t.Fatalf("overlay must place the scaled foreground on the background, got %v", overlay.Sources)
	}
	if g.VideoOut != Label(overlay.Output) {
		t.Fatalf("video out %+v must be the overlay output %q", g.VideoOut, overlay.Output)
	}
}

func TestBuildFullComposition(t *testing.T) {
	in := baseInputs()
	in.BackgroundPath = "/work/bg.mp4"
	in.MusicPath = "/work/music.mp3"

	g, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(g.AudioInputs, []string{"/work/voice.wav", "/work/music.mp3"}) {
		t.Fatalf("unexpected audio inputs %v", g.AudioInputs)
	}
	// Audio pads are relative to the mux pass regardless of how many
	// video layers the first pass consumed.
	gains := opsOfKind(g.AudioOps, KindGain)
	if len(gains) != 2 {
		t.Fatalf("expected a gain op per track, got %v", g.AudioOps)
	}
	if !reflect.DeepEqual(gains[0].Sources, []Stream{Pad(1, "a")}) || !reflect.DeepEqual(gains[1].Sources, []Stream{Pad(2, "a")}) {
		t.Fatalf("unexpected audio pads %v", g.AudioOps)
	}
}

func TestBuildNonUnitVoiceGainWithoutMusic(t *testing.T) {
	in := baseInputs()
	in.VoiceVolume = 0.8

	g, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.MixesAudio() {
		t.Fatal("gain adjustment must not introduce a mixer")
	}
	if len(g.AudioOps) != 1 || g.AudioOps[0].Kind != KindGain || g.AudioOps[0].Volume != 0.8 {
		t.Fatalf("expected a single 0.8 gain op, got %v", g.AudioOps)
	}
}

func TestBuildDeterministic(t *testing.T) {
	in := baseInputs()
	in.BackgroundPath = "/work/bg.mp4"
	in.MusicPath = "/work/music.mp3"

	first, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("graphs differ:\n%+v\n%+v", first, second)
	}
}

func TestBuildValidation(t *testing.T) {
	cases := map[string]func(*Inputs){
		"missing video":     func(in *Inputs) { in.VideoPath = "" },
		"missing voice":     func(in *Inputs) { in.VoicePath = "" },
		"negative volume":   func(in *Inputs) { in.VoiceVolume = -0.1 },
		"zero overlay size": func(in *Inputs) { in.Width = 0 },
	}
	for name, mutate := range cases {
		in := baseInputs()
		mutate(&in)
		if _, err := Build(in); !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}
