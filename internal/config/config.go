// Package config handles the XDG configuration directory, file paths and
// settings loaded from config.yml or the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "todoctl"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yml"

	// SessionFile is the stored session filename.
	SessionFile = "session.json"

	// LogFile is the default log filename.
	LogFile = "todoctl.log"
)

// Settings are the tunables read from config.yml and TODOCTL_* variables.
type Settings struct {
	APIURL   string        `yaml:"api_url" env:"TODOCTL_API_URL" env-default:"http://localhost:8080"`
	Timeout  time.Duration `yaml:"timeout" env:"TODOCTL_TIMEOUT" env-default:"5s"`
	LogLevel string        `yaml:"log_level" env:"TODOCTL_LOG_LEVEL" env-default:"info"`
	LogFile  string        `yaml:"log_file" env:"TODOCTL_LOG_FILE"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging to stderr.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings
}

// New creates a Config rooted at configDir, or at the default directory when
// configDir is empty. A .env file in the working directory is loaded first;
// config.yml in the config directory is read when present, otherwise the
// settings come from the environment alone.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadSettings() error {
	path := c.SettingsPath()
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &c.Settings); err != nil {
			return fmt.Errorf("read %s: %w", SettingsFile, err)
		}
	} else if err := cleanenv.ReadEnv(&c.Settings); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	if c.Settings.LogFile == "" {
		c.Settings.LogFile = filepath.Join(c.Dir, LogFile)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to the optional settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSession checks if the session file exists.
func (c *Config) HasSession() bool {
	_, err := os.Stat(c.SessionPath())
	return err == nil
}
