package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Store contains job store connection settings. The backend is either
// "sqlite" (local queue database) or "rest" (PostgREST-style remote store).
type Store struct {
	Backend        string `toml:"backend"`
	DBPath         string `toml:"db_path"`
	URL            string `toml:"url"`
	ServiceKey     string `toml:"service_key"`
	Table          string `toml:"table"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Voice contains voice synthesis engine settings. Backends are tried in
// order until one succeeds; an empty list is a fatal configuration error
// surfaced at stage time.
type Voice struct {
	Backends     []string `toml:"backends"`
	BaseURL      string   `toml:"base_url"`
	APIKey       string   `toml:"api_key"`
	DefaultVoice string   `toml:"default_voice"`
}

// Avatar contains face/mesh extraction engine settings.
type Avatar struct {
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url"`
}

// LipSync contains lip-sync engine settings.
type LipSync struct {
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url"`
	FPS     int    `toml:"fps"`
}

// Encode contains media encoder settings.
type Encode struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	VideoCodec   string `toml:"video_codec"`
	Preset       string `toml:"preset"`
	CRF          int    `toml:"crf"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
	ScaleWidth   int    `toml:"scale_width"`
	ScaleHeight  int    `toml:"scale_height"`
	ExtraArgs    string `toml:"extra_args"`
}

// Workflow contains worker timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Preflight contains startup resource check thresholds.
type Preflight struct {
	Enabled        bool    `toml:"enabled"`
	MinFreeDiskGiB int     `toml:"min_free_disk_gib"`
	MinFreeMemMB   int     `toml:"min_free_mem_mb"`
	MaxCPUPercent  float64 `toml:"max_cpu_percent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for renderforge.
//
// Configuration sections by subsystem:
//   - Paths: output, staging, and log directories
//   - Store: job store backend (local sqlite or remote REST)
//   - Voice: voice synthesis backends and default voice
//   - Avatar: face/mesh extraction engine
//   - LipSync: lip-sync engine and frame rate
//   - Encode: ffmpeg binary and codec settings
//   - Workflow: worker polling intervals
//   - Preflight: startup resource check thresholds
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Store     Store     `toml:"store"`
	Voice     Voice     `toml:"voice"`
	Avatar    Avatar    `toml:"avatar"`
	LipSync   LipSync   `toml:"lipsync"`
	Encode    Encode    `toml:"encode"`
	Workflow  Workflow  `toml:"workflow"`
	Preflight Preflight `toml:"preflight"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/renderforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("renderforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for worker operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the encoder executable name.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Encode.FFmpegBinary) != "" {
		return c.Encode.FFmpegBinary
	}
	return defaultFFmpegBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
