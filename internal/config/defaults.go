package config

const (
	defaultDataDir            = "~/.local/share/loom"
	defaultLogDir             = "~/.local/share/loom/logs"
	defaultAPIBind            = "127.0.0.1:7319"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultJobPollInterval    = 2
	defaultErrorRetryInterval = 5
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultMaxConcurrentJobs  = 2
	defaultNotifyTimeout      = 10

	defaultRetryAttempts  = 3
	defaultBaseBackoffMS  = 500
	defaultMaxBackoffMS   = 30_000
	defaultMaxWaitMS      = 2_000
	defaultOpenDurationMS = 30_000
	defaultThreshold      = 5
)

// Dependency names used by the default pipeline.
const (
	DepYouTube  = "youtube-api"
	DepWhisper  = "whisper-api"
	DepGemini   = "gemini-api"
	DepOpenAI   = "openai-api"
	DepArtifact = "artifact-store"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			JobPollInterval:    defaultJobPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Jobs:           true,
			Errors:         true,
			Breaker:        true,
		},
		Retry: Retry{
			MaxAttempts:   defaultRetryAttempts,
			BaseBackoffMS: defaultBaseBackoffMS,
			MaxBackoffMS:  defaultMaxBackoffMS,
		},
		Dependencies: map[string]Dependency{
			DepYouTube: {
				Rate:             5,
				Burst:            10,
				MaxWaitMS:        defaultMaxWaitMS,
				FailureThreshold: defaultThreshold,
				OpenDurationMS:   defaultOpenDurationMS,
				BaseURL:          "https://www.googleapis.com/youtube/v3",
				TimeoutSeconds:   30,
			},
			DepWhisper: {
				Rate:             1,
				Burst:            2,
				MaxWaitMS:        10_000,
				FailureThreshold: 3,
				OpenDurationMS:   60_000,
				BaseURL:          "https://api.openai.com/v1",
				TimeoutSeconds:   300,
			},
			DepGemini: {
				Rate:             2,
				Burst:            4,
				MaxWaitMS:        5_000,
				FailureThreshold: defaultThreshold,
				OpenDurationMS:   defaultOpenDurationMS,
				BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
				TimeoutSeconds:   120,
			},
			DepOpenAI: {
				Rate:             2,
				Burst:            4,
				MaxWaitMS:        5_000,
				FailureThreshold: defaultThreshold,
				OpenDurationMS:   defaultOpenDurationMS,
				BaseURL:          "https://api.openai.com/v1",
				TimeoutSeconds:   120,
			},
			DepArtifact: {
				Rate:             50,
				Burst:            100,
				MaxWaitMS:        defaultMaxWaitMS,
				FailureThreshold: 10,
				OpenDurationMS:   5_000,
			},
		},
		Pipeline: Pipeline{
			Stages: []StageSpec{
				{Name: "extract", Dependency: DepYouTube, Operation: "youtube.metadata", Required: true},
				{Name: "transcribe", Dependency: DepWhisper, Operation: "whisper.transcribe", Required: true},
				{Name: "analyze_gemini", Dependency: DepGemini, Operation: "gemini.analyze", Group: "analyze"},
				{Name: "analyze_openai", Dependency: DepOpenAI, Operation: "openai.analyze", Group: "analyze"},
				{Name: "store", Dependency: DepArtifact, Operation: "artifact.save", Required: true},
			},
		},
	}
}
