// Package config loads user defaults from pixcat's TOML config file.
// Precedence: built-in defaults, then the XDG config file, then
// ./config.toml, then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Align    string `koanf:"align"`    // "left", "center", or "right"
	Resample string `koanf:"resample"` // "nearest", "bilinear", "bicubic", "mitchell", or "lanczos"
	Graphics string `koanf:"graphics"` // "auto", "kitty", or "none"
	Transfer string `koanf:"transfer"` // "raw", or "png" for terminals over slow links
	Quiet    bool   `koanf:"quiet"`    // suppress the batch summary on stderr

	FitScreen FitScreenConfig `koanf:"fit_screen"`
}

// FitScreenConfig holds margins for the fit-screen command, in terminal
// cells kept free on each side.
type FitScreenConfig struct {
	HMargin int `koanf:"h_margin"`
	VMargin int `koanf:"v_margin"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Align:    "center",
		Resample: "lanczos",
		Graphics: "auto",
		Transfer: "raw",
	}
}

// Load reads the config files in order of priority (last wins) and
// keeps built-in defaults for everything left unset.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func configPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/pixcat/config.toml
		filepath.Join(xdg.ConfigHome, "pixcat", "config.toml"),

		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}
