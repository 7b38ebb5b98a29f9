package config

import (
	"os"
	"strconv"
)

// Environment variable names for overrides. The FILE_MANAGER prefix is the
// API the desktop frontend already sets.
const (
	EnvConfig   = "FILE_MANAGER_CONFIG"
	EnvBaseDir  = "FILE_MANAGER_BASE_DIR"
	EnvStartDir = "FILE_MANAGER_START_DIR"
	EnvHost     = "FILE_MANAGER_HOST"
	EnvPort     = "FILE_MANAGER_PORT"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string
	BaseDir    string
	StartDir   string
	Host       string
	Port       int // 0 = unset
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. A non-numeric FILE_MANAGER_PORT is ignored rather than fatal.
func ReadEnvOverrides() EnvOverrides {
	overrides := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		BaseDir:    os.Getenv(EnvBaseDir),
		StartDir:   os.Getenv(EnvStartDir),
		Host:       os.Getenv(EnvHost),
	}

	if raw := os.Getenv(EnvPort); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			overrides.Port = port
		}
	}

	return overrides
}
