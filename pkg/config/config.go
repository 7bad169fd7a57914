// Package config handles loading, validating and saving the cache-level
// configuration: where the installed-wheel cache lives, which lock style
// guards it and the default install policies. Install-time toggles derived
// from it travel as one install.Options value.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/errors"
	"github.com/glorpus-work/wheelhouse/pkg/fslock"
	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/install"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general cache settings.
type Settings struct {
	// CacheDir is the cache root shared by all processes.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// LockStyle selects the POSIX lock primitive guarding cache slots:
	// "posix" (fcntl record lock) or "bsd" (flock).
	LockStyle string `yaml:"lock_style,omitempty"`

	// HermeticScripts forces isolation switches onto installed script
	// shebangs. Defaults to true.
	HermeticScripts *bool `yaml:"hermetic_scripts,omitempty"`

	// CompileBytecode pre-compiles installed .py files at cache time.
	CompileBytecode bool `yaml:"compile_bytecode,omitempty"`

	// TolerateCollisions downgrades content-collision errors to warnings
	// for best-effort installs.
	TolerateCollisions bool `yaml:"tolerate_collisions,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// YAMLIndent is the number of spaces to use for YAML indentation.
const YAMLIndent = 2

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), "wheelhouse")
	}
	hermetic := true
	return &Config{
		Settings: Settings{
			CacheDir:        filepath.Join(cacheDir, "wheelhouse"),
			LockStyle:       string(fslock.StylePOSIX),
			HermeticScripts: &hermetic,
			LogLevel:        "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	switch fslock.Style(c.Settings.LockStyle) {
	case "", fslock.StylePOSIX, fslock.StyleBSD:
	default:
		return errors.Wrapf(errors.ErrConfigValidation, "unknown lock style %q", c.Settings.LockStyle)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.Settings.LogLevel != "" && !validLevels[strings.ToLower(c.Settings.LogLevel)] {
		return errors.Wrapf(errors.ErrConfigValidation, "unknown log level %q", c.Settings.LogLevel)
	}
	if c.Settings.CacheDir == "" {
		return errors.ErrCacheDirectory
	}
	return nil
}

// LockStyle returns the configured cache lock style.
func (c *Config) LockStyle() fslock.Style {
	return fslock.Style(c.Settings.LockStyle)
}

// InstalledWheelsDir returns the cache subdirectory holding installed wheel
// chroots.
func (c *Config) InstalledWheelsDir() string {
	return filepath.Join(c.Settings.CacheDir, "installed_wheels")
}

// InstallOptions returns the default install policy seeded from the
// configuration.
func (c *Config) InstallOptions() install.Options {
	opts := install.DefaultOptions()
	if c.Settings.HermeticScripts != nil {
		opts.HermeticScripts = *c.Settings.HermeticScripts
	}
	opts.Compile = c.Settings.CompileBytecode
	return opts
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.LockStyle == "" {
		c.Settings.LockStyle = defaults.Settings.LockStyle
	}
	if c.Settings.HermeticScripts == nil {
		c.Settings.HermeticScripts = defaults.Settings.HermeticScripts
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
