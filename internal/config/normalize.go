package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeVoice()
	c.normalizeEngines()
	c.normalizeEncode()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	c.Store.URL = strings.TrimRight(strings.TrimSpace(c.Store.URL), "/")
	if c.Store.ServiceKey == "" {
		if value, ok := os.LookupEnv("RENDERFORGE_SERVICE_KEY"); ok {
			c.Store.ServiceKey = strings.TrimSpace(value)
		}
	}
	c.Store.Table = strings.TrimSpace(c.Store.Table)
	if c.Store.Table == "" {
		c.Store.Table = defaultStoreTable
	}
	if c.Store.RequestTimeout <= 0 {
		c.Store.RequestTimeout = defaultStoreTimeout
	}
	if strings.TrimSpace(c.Store.DBPath) == "" {
		c.Store.DBPath = filepath.Join(c.Paths.LogDir, "queue.db")
	} else {
		expanded, err := expandPath(c.Store.DBPath)
		if err != nil {
			return fmt.Errorf("store.db_path: %w", err)
		}
		c.Store.DBPath = expanded
	}
	return nil
}

func (c *Config) normalizeVoice() {
	if c.Voice.APIKey == "" {
		if value, ok := os.LookupEnv("RENDERFORGE_VOICE_API_KEY"); ok {
			c.Voice.APIKey = strings.TrimSpace(value)
		}
	}
	backends := make([]string, 0, len(c.Voice.Backends))
	for _, name := range c.Voice.Backends {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			backends = append(backends, name)
		}
	}
	c.Voice.Backends = backends
	c.Voice.BaseURL = strings.TrimRight(strings.TrimSpace(c.Voice.BaseURL), "/")
	if strings.TrimSpace(c.Voice.DefaultVoice) == "" {
		c.Voice.DefaultVoice = defaultVoice
	}
}

func (c *Config) normalizeEngines() {
	c.Avatar.Backend = strings.ToLower(strings.TrimSpace(c.Avatar.Backend))
	if c.Avatar.Backend == "" {
		c.Avatar.Backend = defaultAvatarBackend
	}
	c.Avatar.BaseURL = strings.TrimRight(strings.TrimSpace(c.Avatar.BaseURL), "/")

	c.LipSync.Backend = strings.ToLower(strings.TrimSpace(c.LipSync.Backend))
	if c.LipSync.Backend == "" {
		c.LipSync.Backend = defaultLipSyncBackend
	}
	c.LipSync.BaseURL = strings.TrimRight(strings.TrimSpace(c.LipSync.BaseURL), "/")
	if c.LipSync.FPS <= 0 {
		c.LipSync.FPS = defaultLipSyncFPS
	}
}

func (c *Config) normalizeEncode() {
	if strings.TrimSpace(c.Encode.FFmpegBinary) == "" {
		c.Encode.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Encode.VideoCodec) == "" {
		c.Encode.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Encode.Preset) == "" {
		c.Encode.Preset = defaultEncodePreset
	}
	if c.Encode.CRF <= 0 {
		c.Encode.CRF = defaultEncodeCRF
	}
	if strings.TrimSpace(c.Encode.AudioCodec) == "" {
		c.Encode.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(c.Encode.AudioBitrate) == "" {
		c.Encode.AudioBitrate = defaultAudioBitrate
	}
	if c.Encode.ScaleWidth <= 0 {
		c.Encode.ScaleWidth = defaultScaleWidth
	}
	if c.Encode.ScaleHeight <= 0 {
		c.Encode.ScaleHeight = defaultScaleHeight
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
