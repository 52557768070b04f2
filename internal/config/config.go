package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config stores environment-driven settings for the engine and its tooling.
type Config struct {
	Service   ServiceConfig   `envPrefix:"SERVICE_"`
	Directory DirectoryConfig `envPrefix:"APPROVAL_"`
	// LogLevel sets the logger level.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// ServiceConfig identifies the running process in logs.
type ServiceConfig struct {
	Name        string `env:"NAME" envDefault:"approval-chains"`
	Version     string `env:"VERSION" envDefault:"dev"`
	Environment string `env:"ENVIRONMENT" envDefault:"production"`
}

// DirectoryConfig locates the org directory and policy file.
type DirectoryConfig struct {
	// File is the YAML directory/policy path. Empty selects the embedded sample.
	File string `env:"DIRECTORY_FILE"`
	// ReloadDebounce waits for writes to settle before reloading.
	ReloadDebounce time.Duration `env:"RELOAD_DEBOUNCE" envDefault:"500ms"`
}

// Load parses environment variables into Config.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}
