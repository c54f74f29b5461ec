package payload

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"renderforge/internal/services"
)

func TestParseVoiceRequiresText(t *testing.T) {
	if _, err := ParseVoice(json.RawMessage(`{"voice_id":"emma"}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	p, err := ParseVoice(json.RawMessage(`{"text":"hello world","voice_id":"emma"}`))
	if err != nil {
		t.Fatalf("ParseVoice: %v", err)
	}
	if p.Text != "hello world" || p.VoiceID != "emma" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestParseVoiceMalformedJSON(t *testing.T) {
	_, err := ParseVoice(json.RawMessage(`{"text":`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for malformed JSON, got %v", err)
	}
}

func TestParseAvatarAcceptsImagesAlias(t *testing.T) {
	p, err := ParseAvatar(json.RawMessage(`{"images":"/data/faces"}`))
	if err != nil {
		t.Fatalf("ParseAvatar: %v", err)
	}
	if p.ImageDir != "/data/faces" {
		t.Fatalf("expected alias to fill image_dir, got %q", p.ImageDir)
	}
	if p.Name != DefaultAvatarName {
		t.Fatalf("expected default name, got %q", p.Name)
	}
}

func TestParseAvatarPrefersCanonicalKey(t *testing.T) {
	p, err := ParseAvatar(json.RawMessage(`{"image_dir":"/a","images":"/b","name":"presenter"}`))
	if err != nil {
		t.Fatalf("ParseAvatar: %v", err)
	}
	if p.ImageDir != "/a" {
		t.Fatalf("canonical key must win over alias, got %q", p.ImageDir)
	}
	if p.Name != "presenter" {
		t.Fatalf("unexpected name %q", p.Name)
	}
}

func TestParseAvatarRequiresImages(t *testing.T) {
	_, err := ParseAvatar(json.RawMessage(`{"name":"presenter"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "image_dir") {
		t.Fatalf("error should name the missing field, got %v", err)
	}
}

func TestParseFullAvatar(t *testing.T) {
	_, err := ParseFullAvatar(json.RawMessage(`{"script":"hi"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without images, got %v", err)
	}

	p, err := ParseFullAvatar(json.RawMessage(`{"script":"hi","images":"/data/faces","voice_id":"emma"}`))
	if err != nil {
		t.Fatalf("ParseFullAvatar: %v", err)
	}
	if p.Script != "hi" || p.Images != "/data/faces" || p.VoiceID != "emma" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestParseFinalDefaults(t *testing.T) {
	p, err := ParseFinal(json.RawMessage(`{"voice_path":"/v.wav","avatar_path":"/a.mp4"}`))
	if err != nil {
		t.Fatalf("ParseFinal: %v", err)
	}
	if p.Volume != DefaultVoiceVolume {
		t.Fatalf("expected default voice volume, got %v", p.Volume)
	}
	if p.MusicVolume != DefaultMusicVolume {
		t.Fatalf("expected default music volume, got %v", p.MusicVolume)
	}
	if p.BackgroundPath != "" || p.MusicPath != "" {
		t.Fatalf("optional paths must stay empty, got %+v", p)
	}
}

func TestParseFinalExplicitZeroVolume(t *testing.T) {
	p, err := ParseFinal(json.RawMessage(`{"voice_path":"/v.wav","avatar_path":"/a.mp4","music_volume":0}`))
	if err != nil {
		t.Fatalf("ParseFinal: %v", err)
	}
	if p.MusicVolume != 0 {
		t.Fatalf("explicit zero must not be replaced by the default, got %v", p.MusicVolume)
	}
}

func TestParseFinalRejectsNegativeVolume(t *testing.T) {
	_, err := ParseFinal(json.RawMessage(`{"voice_path":"/v.wav","avatar_path":"/a.mp4","volume":-1}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseFinalRequiresPaths(t *testing.T) {
	_, err := ParseFinal(json.RawMessage(`{"voice_path":"/v.wav"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseVideo(t *testing.T) {
	if _, err := ParseVideo(nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty payload, got %v", err)
	}

	p, err := ParseVideo(json.RawMessage(`{"script":"intro","template":"slides"}`))
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if p.Template != "slides" {
		t.Fatalf("unexpected template %q", p.Template)
	}
}
