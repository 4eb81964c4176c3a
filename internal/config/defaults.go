package config

const (
	defaultDataDir               = "~/.local/share/verifyd"
	defaultLogDir                = "~/.local/share/verifyd/logs"
	defaultAPIBind               = "127.0.0.1:8733"
	defaultSessionTTLHours       = 24
	defaultSweepIntervalSeconds  = 300
	defaultWalrusBaseURL         = "https://aggregator.walrus-testnet.walrus.space"
	defaultWalrusTimeoutSeconds  = 30
	defaultAnalysisBaseURL       = "https://api.deepseek.com"
	defaultAnalysisModel         = "deepseek-chat"
	defaultAnalysisTimeout       = 60
	defaultTranscriptionBinary   = "whisperx"
	defaultTranscriptionModel    = "large-v3-turbo"
	defaultCopyrightAPIKey       = "test"
	defaultCopyrightBaseURL      = "https://api.acoustid.org"
	defaultCopyrightBinary       = "fpcalc"
	defaultCopyrightTimeout      = 15
	defaultWorkerQueueSize       = 64
	defaultEnqueueTimeoutMillis  = 250
	defaultMaxPipelineSeconds    = 600
	defaultEstimateSeconds       = 120
	defaultLogFormat             = "text"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			SessionTTLHours:      defaultSessionTTLHours,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
		},
		Walrus: Walrus{
			BaseURL:        defaultWalrusBaseURL,
			TimeoutSeconds: defaultWalrusTimeoutSeconds,
		},
		Analysis: Analysis{
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			TimeoutSeconds: defaultAnalysisTimeout,
		},
		Transcription: Transcription{
			Binary: defaultTranscriptionBinary,
			Model:  defaultTranscriptionModel,
		},
		Copyright: Copyright{
			APIKey:         defaultCopyrightAPIKey,
			BaseURL:        defaultCopyrightBaseURL,
			Binary:         defaultCopyrightBinary,
			TimeoutSeconds: defaultCopyrightTimeout,
		},
		Worker: Worker{
			QueueSize:             defaultWorkerQueueSize,
			EnqueueTimeoutMillis:  defaultEnqueueTimeoutMillis,
			MaxPipelineSeconds:    defaultMaxPipelineSeconds,
			DefaultEstimateSecond: defaultEstimateSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
