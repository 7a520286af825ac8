// Package config loads project settings from yapm.yaml in the project root,
// with YAPM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/frederic-klein/yapm/internal/rteheader"
)

// FileName is the config file name without extension.
const FileName = "yapm"

// Config represents the project configuration.
type Config struct {
	DepsRoot  string       `mapstructure:"deps_root"`
	PacksDir  string       `mapstructure:"packs_dir"`
	Toolchain string       `mapstructure:"toolchain"`
	Header    HeaderConfig `mapstructure:"header"`
	Log       LogConfig    `mapstructure:"log"`
}

// HeaderConfig controls RTE header generation.
type HeaderConfig struct {
	AutoGenerate bool   `mapstructure:"auto_generate"`
	FileName     string `mapstructure:"file_name"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DepsRoot:  "deps",
		PacksDir:  "packs",
		Toolchain: "GCC",
		Header: HeaderConfig{
			AutoGenerate: true,
			FileName:     rteheader.DefaultFileName,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads yapm.yaml (or .yml/.toml) from dir. A missing file yields defaults.
func Load(dir string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("deps_root", defaults.DepsRoot)
	v.SetDefault("packs_dir", defaults.PacksDir)
	v.SetDefault("toolchain", defaults.Toolchain)
	v.SetDefault("header.auto_generate", defaults.Header.AutoGenerate)
	v.SetDefault("header.file_name", defaults.Header.FileName)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.development", defaults.Log.Development)

	v.SetConfigName(FileName)
	v.AddConfigPath(dir)

	v.SetEnvPrefix("YAPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	if !filepath.IsAbs(cfg.PacksDir) {
		cfg.PacksDir = filepath.Join(dir, cfg.PacksDir)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DepsRoot == "" || strings.Contains(cfg.DepsRoot, "/") {
		return fmt.Errorf("deps_root must be a single non-empty name, got: %q", cfg.DepsRoot)
	}
	if cfg.Header.FileName == "" || filepath.Base(cfg.Header.FileName) != cfg.Header.FileName {
		return fmt.Errorf("header.file_name must be a plain file name, got: %q", cfg.Header.FileName)
	}
	if cfg.Toolchain == "" {
		return fmt.Errorf("toolchain must not be empty")
	}
	return nil
}
