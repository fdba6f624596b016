// Package config holds the ambient settings of the bootstrap tool: where to
// put things, how much to log and how to print. The toolchain being built
// is fixed in toolchain.DefaultSpec and is not configurable here.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the tool's configuration
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// PathsConfig overrides the discovered workspace locations
type PathsConfig struct {
	// ProjectRoot is the project whose cargo config is rewritten and which
	// `build` compiles. If empty, it is discovered from CARGO_MANIFEST_DIR
	// or the working directory.
	ProjectRoot string `mapstructure:"project_root" yaml:"project_root"`

	// CacheDir replaces the platform cache directory. The toolchain
	// checkouts are placed in a u128-bpf-toolchain subdirectory of it.
	// Supports ~ for home directory expansion.
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// LoggingConfig controls the structured run log
type LoggingConfig struct {
	// Enabled controls whether xtask.log is written in the cache root (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
}

// OutputConfig controls terminal progress output
type OutputConfig struct {
	// Color enables styled progress lines when stdout is a terminal (default: true)
	Color bool `mapstructure:"color" yaml:"color"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			ProjectRoot: "", // Empty means discover
			CacheDir:    "", // Empty means platform cache directory
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Output: OutputConfig{
			Color: true,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Paths defaults
	viper.SetDefault("paths.project_root", defaults.Paths.ProjectRoot)
	viper.SetDefault("paths.cache_dir", defaults.Paths.CacheDir)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Output defaults
	viper.SetDefault("output.color", defaults.Output.Color)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Paths.ProjectRoot = ExpandPath(cfg.Paths.ProjectRoot)
	cfg.Paths.CacheDir = ExpandPath(cfg.Paths.CacheDir)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "u128bpf")
	}
	// Fall back to ~/.config/u128bpf
	home, err := os.UserHomeDir()
	if err != nil {
		return ".u128bpf"
	}
	return filepath.Join(home, ".config", "u128bpf")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
