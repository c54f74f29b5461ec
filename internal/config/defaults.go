package config

// Store backend selectors accepted by [store] backend.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendREST   = "rest"
)

const (
	defaultOutputDir          = "~/.local/share/renderforge/output"
	defaultStagingDir         = "~/.local/share/renderforge/staging"
	defaultLogDir             = "~/.local/share/renderforge/logs"
	defaultStoreBackend       = StoreBackendSQLite
	defaultStoreTable         = "render_jobs"
	defaultStoreTimeout       = 10
	defaultVoiceBackend       = "stub"
	defaultVoice              = "default"
	defaultAvatarBackend      = "stub"
	defaultLipSyncBackend     = "stub"
	defaultLipSyncFPS         = 25
	defaultFFmpegBinary       = "ffmpeg"
	defaultVideoCodec         = "libx264"
	defaultEncodePreset       = "medium"
	defaultEncodeCRF          = 18
	defaultAudioCodec         = "aac"
	defaultAudioBitrate       = "192k"
	defaultScaleWidth         = 1280
	defaultScaleHeight        = 720
	defaultQueuePollInterval  = 3
	defaultErrorRetryInterval = 10
	defaultMinFreeDiskGiB     = 2
	defaultMinFreeMemMB       = 512
	defaultMaxCPUPercent      = 90.0
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Store: Store{
			Backend:        defaultStoreBackend,
			Table:          defaultStoreTable,
			RequestTimeout: defaultStoreTimeout,
		},
		Voice: Voice{
			Backends:     []string{defaultVoiceBackend},
			DefaultVoice: defaultVoice,
		},
		Avatar: Avatar{
			Backend: defaultAvatarBackend,
		},
		LipSync: LipSync{
			Backend: defaultLipSyncBackend,
			FPS:     defaultLipSyncFPS,
		},
		Encode: Encode{
			FFmpegBinary: defaultFFmpegBinary,
			VideoCodec:   defaultVideoCodec,
			Preset:       defaultEncodePreset,
			CRF:          defaultEncodeCRF,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
			ScaleWidth:   defaultScaleWidth,
			ScaleHeight:  defaultScaleHeight,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Preflight: Preflight{
			Enabled:        true,
			MinFreeDiskGiB: defaultMinFreeDiskGiB,
			MinFreeMemMB:   defaultMinFreeMemMB,
			MaxCPUPercent:  defaultMaxCPUPercent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
