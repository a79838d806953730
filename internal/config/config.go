// SPDX-License-Identifier: MPL-2.0

// Package config builds the process-wide configuration once at startup.
// Values come from an optional config file, environment fallbacks, and
// defaults, in that order of precedence. The struct is immutable after Load;
// components receive it by reference.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"chatops-anything/internal/command"
	"chatops-anything/internal/issue"
	"chatops-anything/internal/pathcheck"
)

// Configuration keys and their environment fallbacks. The env names are kept
// for compatibility with existing deployments.
const (
	KeyBinPath         = "bin_path"
	KeyConfigPath      = "config_path"
	KeyTempPath        = "temp_path"
	KeyExclusions      = "exclusions"
	KeyTimeout         = "timeout"
	KeyMaxDownloadSize = "max_download_size"

	EnvBinPath         = "CA_BINPATH"
	EnvConfigPath      = "CA_CONFPATH"
	EnvTempPath        = "CA_TMPPATH"
	EnvExclusions      = "COPS_EXCLUSIONS"
	EnvTimeout         = "COPS_TIMEOUT"
	EnvMaxDownloadSize = "COPS_MAX_DL"
)

const (
	// DefaultTimeout is the per-invocation timeout when none is configured.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxDownloadSize is the fetched-artifact ceiling (about 30 MB).
	DefaultMaxDownloadSize int64 = 30 * 1000 * 1000
	// defaultConfigSubdir is probed under BIN_PATH when CONFIG_PATH is unset.
	defaultConfigSubdir = "conf.d"
)

// ErrMissingBinPath is returned when no executable root is configured.
var ErrMissingBinPath = errors.New("bin_path is required")

// Config is the process-wide configuration.
type Config struct {
	// BinPath is the root directory of executables to expose. Required.
	BinPath string
	// ConfigPath is the root directory of declarative config files. Empty
	// disables config-driven descriptors.
	ConfigPath string
	// TempPath is the writable scratch root for fetched artifacts. Empty
	// means the registry creates (and later cleans) its own temp area.
	TempPath string
	// Exclusions are canonical names omitted from scanner-derived
	// descriptors even when discovered.
	Exclusions []string
	// Timeout is the default per-invocation timeout.
	Timeout time.Duration
	// MaxDownloadSize is the byte ceiling for fetched artifacts.
	MaxDownloadSize int64
}

// Load builds the configuration. file may be empty; environment fallbacks
// and defaults still apply.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyTimeout, int(DefaultTimeout/time.Second))
	v.SetDefault(KeyMaxDownloadSize, DefaultMaxDownloadSize)

	bindings := map[string]string{
		KeyBinPath:         EnvBinPath,
		KeyConfigPath:      EnvConfigPath,
		KeyTempPath:        EnvTempPath,
		KeyExclusions:      EnvExclusions,
		KeyTimeout:         EnvTimeout,
		KeyMaxDownloadSize: EnvMaxDownloadSize,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read config file").
				WithResource(file).
				WithSuggestion("Check the file exists and parses as YAML").
				Wrap(err).
				BuildError()
		}
	}

	cfg := &Config{
		BinPath:         v.GetString(KeyBinPath),
		ConfigPath:      v.GetString(KeyConfigPath),
		TempPath:        v.GetString(KeyTempPath),
		Exclusions:      splitExclusions(v.GetString(KeyExclusions)),
		Timeout:         time.Duration(v.GetInt(KeyTimeout)) * time.Second,
		MaxDownloadSize: v.GetInt64(KeyMaxDownloadSize),
	}

	if cfg.BinPath == "" {
		return nil, issue.NewErrorContext().
			WithOperation("resolve the executable root").
			WithSuggestion("Set bin_path in the config file or export " + EnvBinPath).
			Wrap(ErrMissingBinPath).
			BuildError()
	}

	if cfg.ConfigPath == "" {
		cfg.ConfigPath = probeDefaultConfigPath(cfg.BinPath)
	}

	return cfg, nil
}

// Validate applies the root path checks. BinPath must be a readable
// directory; ConfigPath (when enabled) readable; TempPath (when supplied by
// the user) writeable. Same-directory overlaps are advisories, not errors.
func (c *Config) Validate() error {
	if err := pathcheck.Check(c.BinPath, false); err != nil {
		return issue.NewErrorContext().
			WithOperation("validate bin_path").
			WithResource(c.BinPath).
			WithSuggestion("Point bin_path at a readable directory of executables").
			Wrap(err).
			BuildError()
	}
	if c.ConfigPath != "" {
		if err := pathcheck.Check(c.ConfigPath, false); err != nil {
			return issue.NewErrorContext().
				WithOperation("validate config_path").
				WithResource(c.ConfigPath).
				WithSuggestion("Point config_path at a readable directory, or unset it to disable declarative configs").
				Wrap(err).
				BuildError()
		}
	}
	if c.TempPath != "" {
		if err := pathcheck.Check(c.TempPath, true); err != nil {
			return issue.NewErrorContext().
				WithOperation("validate temp_path").
				WithResource(c.TempPath).
				WithSuggestion("Point temp_path at a writeable directory, or unset it for an automatic temp area").
				Wrap(err).
				BuildError()
		}
	}

	if c.TempPath != "" && c.BinPath == c.TempPath {
		slog.Info("bin_path and temp_path point at the same directory; "+
			"consider a dedicated temp_path or leave it unset for an automatic temp area",
			"path", c.BinPath)
	}
	if c.ConfigPath != "" && c.BinPath == c.ConfigPath {
		slog.Info("bin_path and config_path point at the same directory; "+
			"consider moving config files to their own directory", "path", c.BinPath)
	}
	return nil
}

// IsExcluded reports whether a canonical name is configured out of the
// scanner-derived descriptors.
func (c *Config) IsExcluded(name string) bool {
	for _, excluded := range c.Exclusions {
		if excluded == name {
			return true
		}
	}
	return false
}

// probeDefaultConfigPath checks <bin_path>/conf.d; absence simply disables
// config-driven descriptors.
func probeDefaultConfigPath(binPath string) string {
	candidate := filepath.Join(binPath, defaultConfigSubdir)
	if _, err := os.Stat(candidate); err != nil {
		slog.Info("no config directory found, loading no declarative configs", "probed", candidate)
		return ""
	}
	return candidate
}

// splitExclusions parses the comma-separated exclusion list into canonical
// names.
func splitExclusions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := command.CanonicalName(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}
