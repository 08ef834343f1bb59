// Package config loads hellodomserve settings from an optional YAML file and
// HELLODOM_* environment variables, in that order.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the dev server and build settings.
type Config struct {
	// Listen is the address of the dev server.
	Listen string `yaml:"listen" env:"HELLODOM_LISTEN"`
	// WASMDir is the main package compiled to main.wasm.
	WASMDir string `yaml:"wasm_dir" env:"HELLODOM_WASM_DIR"`
	// Reload recompiles the module on every request for it.
	Reload bool `yaml:"reload" env:"HELLODOM_RELOAD"`
	// Watch rebuilds on source changes and reloads open pages.
	Watch bool `yaml:"watch" env:"HELLODOM_WATCH"`
	// WatchDirs are the directories watched. Empty means WASMDir.
	WatchDirs []string `yaml:"watch_dirs" env:"HELLODOM_WATCH_DIRS" envSeparator:","`
	// StaticDir, if set, is served for every path the module handler does not own.
	StaticDir string `yaml:"static_dir" env:"HELLODOM_STATIC_DIR"`
	// OutDir is where the build command stages the site.
	OutDir string `yaml:"out_dir" env:"HELLODOM_OUT_DIR"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose" env:"HELLODOM_VERBOSE"`
}

// Default returns the settings used when nothing else is given.
func Default() *Config {
	return &Config{
		Listen:  "localhost:8080",
		WASMDir: "./cmd/hellodom",
		OutDir:  "www",
	}
}

// Load reads path over the defaults, then applies the environment.
// An empty path or a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
