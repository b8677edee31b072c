package config

const (
	defaultDataDir        = "~/.local/share/reelist"
	defaultLogDir         = "~/.local/share/reelist/logs"
	defaultRequestTimeout = 15
	defaultPollInterval   = 300
	// defaultRefreshInterval keeps unforced pulls at most once per five minutes.
	defaultRefreshInterval = 300
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			RequestTimeout: defaultRequestTimeout,
		},
		Sync: Sync{
			PollInterval:    defaultPollInterval,
			RefreshInterval: defaultRefreshInterval,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
