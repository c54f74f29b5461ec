package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownVoiceBackends = map[string]struct{}{
	"http": {},
	"stub": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateEncode(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendSQLite:
		return nil
	case StoreBackendREST:
		if c.Store.URL == "" {
			return errors.New("store.url must be set when store.backend is \"rest\"")
		}
		if c.Store.ServiceKey == "" {
			return errors.New("store.service_key is required for the rest backend. Set RENDERFORGE_SERVICE_KEY or edit the config file")
		}
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (expected \"sqlite\" or \"rest\")", c.Store.Backend)
	}
}

func (c *Config) validateVoice() error {
	for _, name := range c.Voice.Backends {
		if _, ok := knownVoiceBackends[name]; !ok {
			return fmt.Errorf("voice.backends: unknown backend %q (expected \"http\" or \"stub\")", name)
		}
		if name == "http" && c.Voice.BaseURL == "" {
			return errors.New("voice.base_url must be set when voice.backends includes \"http\"")
		}
	}
	return nil
}

func (c *Config) validateEngines() error {
	switch c.Avatar.Backend {
	case "http":
		if c.Avatar.BaseURL == "" {
			return errors.New("avatar.base_url must be set when avatar.backend is \"http\"")
		}
	case "stub":
	default:
		return fmt.Errorf("avatar.backend: unsupported value %q", c.Avatar.Backend)
	}

	switch c.LipSync.Backend {
	case "http":
		if c.LipSync.BaseURL == "" {
			return errors.New("lipsync.base_url must be set when lipsync.backend is \"http\"")
		}
	case "stub":
	default:
		return fmt.Errorf("lipsync.backend: unsupported value %q", c.LipSync.Backend)
	}
	return nil
}

func (c *Config) validateEncode() error {
	if c.Encode.CRF < 0 || c.Encode.CRF > 51 {
		return errors.New("encode.crf must be between 0 and 51")
	}
	if !strings.HasSuffix(c.Encode.AudioBitrate, "k") {
		return fmt.Errorf("encode.audio_bitrate: unexpected value %q (expected e.g. \"192k\")", c.Encode.AudioBitrate)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
