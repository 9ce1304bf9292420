package config

const (
	defaultStateDir              = "~/.local/share/lingocast"
	defaultDownloadDir           = "~/Music/lingocast"
	defaultLogDir                = "~/.local/share/lingocast/logs"
	defaultBackendURL            = "http://localhost:4321"
	defaultBackendTimeoutSeconds = 300
	defaultAIBaseURL             = "https://api.openai.com/v1"
	defaultAIProxyURL            = "http://127.0.0.1:7490/v1"
	defaultChatModel             = "gpt-4o"
	defaultSpeechModel           = "tts-1-hd"
	defaultAIRetryAttempts       = 1
	defaultProxyBind             = "127.0.0.1:7490"
	defaultCacheStaleSeconds     = 300
	defaultLogFormat             = "console"
	defaultLogLevel              = "warn"
)

const (
	// AIModeDirect calls the provider with a locally configured API key.
	AIModeDirect = "direct"
	// AIModeProxy calls a lingocast AI proxy that holds the provider key.
	AIModeProxy = "proxy"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Backend: Backend{
			BaseURL:        defaultBackendURL,
			TimeoutSeconds: defaultBackendTimeoutSeconds,
		},
		AI: AI{
			Mode:          AIModeDirect,
			BaseURL:       defaultAIBaseURL,
			ProxyURL:      defaultAIProxyURL,
			ChatModel:     defaultChatModel,
			SpeechModel:   defaultSpeechModel,
			RetryAttempts: defaultAIRetryAttempts,
		},
		Proxy: Proxy{
			Bind: defaultProxyBind,
		},
		Cache: Cache{
			StaleSeconds: defaultCacheStaleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
