// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for filecrane. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	// BaseDir is the confinement root: every relative path in an API
	// request resolves under it. "~" expands to the user's home.
	BaseDir string `toml:"base_dir"`
	// StartDir is the directory the UI opens first. Empty means BaseDir.
	StartDir string `toml:"start_dir"`
	// AllowOutsideRoot permits absolute request paths that resolve outside
	// BaseDir. Off by default; relative paths are always confined.
	AllowOutsideRoot bool `toml:"allow_outside_root"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	Engine  EngineConfig  `toml:"engine"`
	Logging LoggingConfig `toml:"logging"`
}

// EngineConfig tunes the bulk operation engine.
type EngineConfig struct {
	// Workers is the pool size per task. 0 selects min(64, 8 x NumCPU).
	Workers int `toml:"workers"`
	// QueueCapacity bounds the scanner/worker channel.
	QueueCapacity int `toml:"queue_capacity"`
	// BandwidthLimit caps aggregate copy throughput, e.g. "50MB/s".
	// "0" or empty means unlimited.
	BandwidthLimit string `toml:"bandwidth_limit"`
	// TaskTTL is how long finished tasks stay queryable before the janitor
	// evicts them.
	TaskTTL string `toml:"task_ttl"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	BaseDir    *string // --base-dir flag
	Host       *string // --host flag
	Port       *int    // --port flag
	LogLevel   *string // --log-level flag
	LogFormat  *string // --log-format flag
}
