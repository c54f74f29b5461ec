package payload

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"renderforge/internal/services"
)

// Default rendering parameters applied when a payload omits them. The
// voice track plays at full volume; background music is ducked under it.
const (
	DefaultAvatarName  = "avatar"
	DefaultVoiceVolume = 1.0
	DefaultMusicVolume = 0.4
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Voice asks for speech synthesis from a text script.
type Voice struct {
	Text    string `json:"text" validate:"required"`
	VoiceID string `json:"voice_id"`
}

// Avatar asks for face and mesh extraction from a directory of images.
type Avatar struct {
	ImageDir string `json:"image_dir" validate:"required"`
	Name     string `json:"name"`
}

// FullAvatar asks for the whole chain: synthesize the script, extract the
// avatar from the images, lip-sync, and render the final video.
type FullAvatar struct {
	Script  string `json:"script" validate:"required"`
	Images  string `json:"images" validate:"required"`
	VoiceID string `json:"voice_id"`
}

// Final asks for composition of already-produced assets into one video.
type Final struct {
	VoicePath      string  `json:"voice_path" validate:"required"`
	AvatarPath     string  `json:"avatar_path" validate:"required"`
	BackgroundPath string  `json:"background_path"`
	MusicPath      string  `json:"music_path"`
	Volume         float64 `json:"volume"`
	MusicVolume    float64 `json:"music_volume"`
}

// Video asks for a scripted video without an avatar. The template names a
// visual layout understood by the renderer.
type Video struct {
	Script   string `json:"script" validate:"required"`
	Template string `json:"template"`
}

func decode(raw json.RawMessage, operation string, out any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return services.Wrap(services.ErrValidation, "payload", operation, "malformed payload JSON", err)
	}
	if err := validate.Struct(out); err != nil {
		return services.Wrap(services.ErrValidation, "payload", operation, formatValidationErrors(err), nil)
	}
	return nil
}

func formatValidationErrors(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s is %s", e.Field(), e.Tag()))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ParseVoice decodes and validates a voice job payload.
func ParseVoice(raw json.RawMessage) (Voice, error) {
	var p Voice
	if err := decode(raw, "voice", &p); err != nil {
		return Voice{}, err
	}
	return p, nil
}

// ParseAvatar decodes and validates an avatar job payload. Payloads may
// name the image directory either "image_dir" or "images"; some submitters
// use the short form.
func ParseAvatar(raw json.RawMessage) (Avatar, error) {
	var wire struct {
		ImageDir string `json:"image_dir"`
		Images   string `json:"images"`
		Name     string `json:"name"`
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Avatar{}, services.Wrap(services.ErrValidation, "payload", "avatar", "malformed payload JSON", err)
	}
	p := Avatar{ImageDir: wire.ImageDir, Name: wire.Name}
	if p.ImageDir == "" {
		p.ImageDir = wire.Images
	}
	if p.Name == "" {
		p.Name = DefaultAvatarName
	}
	if err := validate.Struct(&p); err != nil {
		return Avatar{}, services.Wrap(services.ErrValidation, "payload", "avatar", formatValidationErrors(err), nil)
	}
	return p, nil
}

// ParseFullAvatar decodes and validates a full_avatar job payload.
func ParseFullAvatar(raw json.RawMessage) (FullAvatar, error) {
	var p FullAvatar
	if err := decode(raw, "full_avatar", &p); err != nil {
		return FullAvatar{}, err
	}
	return p, nil
}

// ParseFinal decodes and validates a final job payload. Omitted volumes
// pick up the defaults; an explicit zero is honored so a track can be
// muted without being dropped.
func ParseFinal(raw json.RawMessage) (Final, error) {
	var wire struct {
		VoicePath      string   `json:"voice_path"`
		AvatarPath     string   `json:"avatar_path"`
		BackgroundPath string   `json:"background_path"`
		MusicPath      string   `json:"music_path"`
		Volume         *float64 `json:"volume"`
		MusicVolume    *float64 `json:"music_volume"`
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Final{}, services.Wrap(services.ErrValidation, "payload", "final", "malformed payload JSON", err)
	}
	p := Final{
		VoicePath:      wire.VoicePath,
		AvatarPath:     wire.AvatarPath,
		BackgroundPath: wire.BackgroundPath,
		MusicPath:      wire.MusicPath,
		Volume:         DefaultVoiceVolume,
		MusicVolume:    DefaultMusicVolume,
	}
	if wire.Volume != nil {
		p.Volume = *wire.Volume
	}
	if wire.MusicVolume != nil {
		p.MusicVolume = *wire.MusicVolume
	}
	if p.Volume < 0 || p.MusicVolume < 0 {
		return Final{}, services.Wrap(services.ErrValidation, "payload", "final", "volumes must not be negative", nil)
	}
	if err := validate.Struct(&p); err != nil {
		return Final{}, services.Wrap(services.ErrValidation, "payload", "final", formatValidationErrors(err), nil)
	}
	return p, nil
}

// ParseVideo decodes and validates a video job payload.
func ParseVideo(raw json.RawMessage) (Video, error) {
	var p Video
	if err := decode(raw, "video", &p); err != nil {
		return Video{}, err
	}
	return p, nil
}
