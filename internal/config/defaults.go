package config

const (
	defaultConfigPath           = "~/.config/ocrcache/config.toml"
	defaultStateDir             = "~/.local/share/ocrcache"
	defaultLogDir               = "~/.local/share/ocrcache/logs"
	defaultCacheMaxSize         = 100
	defaultCacheTTLSeconds      = 3600
	defaultRecognitionEngine    = "text"
	defaultRecognitionDPI       = 300
	defaultTableConfThreshold   = 0.5
	defaultMaxFileSizeMB        = 50
	defaultJobsFile             = "jobs.db"
	defaultAPIBind              = "127.0.0.1:8000"
	defaultRateLimitPerSecond   = 5
	defaultRateLimitBurst       = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultRecognitionLanguage  = "en"
	apiTokenEnv                 = "OCRCACHE_API_TOKEN"
	cacheLockDirName            = "locks"
	supportedEngineDescriptions = "text, tesseract"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Cache: Cache{
			Enabled:    true,
			Dir:        defaultCacheDir(),
			MaxSize:    defaultCacheMaxSize,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Recognition: Recognition{
			Engine:             defaultRecognitionEngine,
			Languages:          []string{defaultRecognitionLanguage},
			DPI:                defaultRecognitionDPI,
			UseAngleCls:        true,
			TableConfThreshold: defaultTableConfThreshold,
			MaxFileSizeMB:      defaultMaxFileSizeMB,
		},
		Jobs: Jobs{
			Enabled: true,
		},
		API: API{
			Bind:               defaultAPIBind,
			RateLimitPerSecond: defaultRateLimitPerSecond,
			RateLimitBurst:     defaultRateLimitBurst,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
