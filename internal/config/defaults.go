package config

const (
	defaultDataDir               = "~/.local/share/readscape"
	defaultLogDir                = "~/.local/share/readscape/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/readscape/readscape"
	defaultLLMTitle              = "Readscape Page Classifier"
	defaultLLMTimeoutSeconds     = 30
	defaultGeminiModel           = "gemini-2.0-flash"
	defaultClassifierMaxChars    = 2000
	defaultClassifierAttempts    = 5
	defaultClassifierBaseDelay   = 1
	defaultClassifierMaxDelay    = 30
	defaultClassifierPageWorkers = 4
	defaultSimilarityThreshold   = 0.6
	defaultConfidenceThreshold   = 0.7
	defaultCatalogTimeout        = 20
	defaultQueuePollInterval     = 5
	defaultErrorRetryInterval    = 10
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultClassifyWorkers       = 2
	defaultLightWorkers          = 4
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Classifier: Classifier{
			Backend:               "llm",
			MaxInputChars:         defaultClassifierMaxChars,
			RetryMaxAttempts:      defaultClassifierAttempts,
			RetryBaseDelaySeconds: defaultClassifierBaseDelay,
			RetryMaxDelaySeconds:  defaultClassifierMaxDelay,
			PageWorkers:           defaultClassifierPageWorkers,
		},
		Segmentation: Segmentation{
			SimilarityThreshold:    defaultSimilarityThreshold,
			SettingWeight:          0.30,
			TimeOfDayWeight:        0.20,
			SceneTypeWeight:        0.15,
			DominantElementsWeight: 0.15,
			WeatherWeight:          0.10,
			AtmosphereWeight:       0.05,
			MoodWeight:             0.05,
			ActivityLevelWeight:    0.00,
		},
		Matching: Matching{
			ConfidenceThreshold: defaultConfidenceThreshold,
			MoodWeight:          0.40,
			SettingWeight:       0.30,
			IntensityWeight:     0.15,
			WeatherWeight:       0.10,
			TimeOfDayWeight:     0.05,
		},
		Catalog: Catalog{
			RequestTimeout: defaultCatalogTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			ClassifyWorkers:    defaultClassifyWorkers,
			LightWorkers:       defaultLightWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
