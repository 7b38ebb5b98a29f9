package config

// Default values for configuration options. Layer 0 of the override chain,
// chosen so the server starts usefully with no config file at all.
const (
	defaultBaseDir        = "~"
	defaultHost           = "127.0.0.1"
	defaultPort           = 8001
	defaultQueueCapacity  = 10_000
	defaultBandwidthLimit = "0"
	defaultTaskTTL        = "1h"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: defaultBaseDir,
		Host:    defaultHost,
		Port:    defaultPort,
		Engine: EngineConfig{
			QueueCapacity:  defaultQueueCapacity,
			BandwidthLimit: defaultBandwidthLimit,
			TaskTTL:        defaultTaskTTL,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
