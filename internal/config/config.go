// Package config loads runtime configuration for displayctl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	appDirName         = "displayctl"
	defaultLogLevel    = "info"
	defaultCallTimeout = 10 * time.Second
	defaultBusName     = "org.gnome.Mutter.DisplayConfig"
	defaultObjectPath  = "/org/gnome/Mutter/DisplayConfig"
	defaultInterface   = "org.gnome.Mutter.DisplayConfig"
)

// FileName is the optional YAML settings file inside the configuration directory.
const FileName = "config.yaml"

// Config holds runtime configuration values.
type Config struct {
	Dir         string
	LogLevel    string
	Debug       bool
	CallTimeout time.Duration
	BusName     string
	ObjectPath  string
	Interface   string
	Color       bool
}

// fileConfig mirrors config.yaml. Empty fields keep the current value.
type fileConfig struct {
	LogLevel    string `yaml:"log_level"`
	CallTimeout string `yaml:"call_timeout"`
	BusName     string `yaml:"bus_name"`
	ObjectPath  string `yaml:"object_path"`
	Interface   string `yaml:"interface"`
	Color       *bool  `yaml:"color"`
}

// Load builds the configuration. dir overrides the configuration directory
// when non-empty; otherwise DISPLAYCTL_DIR or the per-user default is used.
// Values are layered: defaults, <dir>/.env, <dir>/config.yaml, environment.
func Load(dir string) (Config, error) {
	cfg := Config{
		LogLevel:    defaultLogLevel,
		CallTimeout: defaultCallTimeout,
		BusName:     defaultBusName,
		ObjectPath:  defaultObjectPath,
		Interface:   defaultInterface,
		Color:       true,
	}

	if dir == "" {
		dir = envString("DISPLAYCTL_DIR", "")
	}
	if dir == "" {
		def, err := DefaultDir()
		if err != nil {
			return Config{}, err
		}
		dir = def
	}
	cfg.Dir = dir

	if err := loadEnvFile(filepath.Join(cfg.Dir, ".env")); err != nil {
		return Config{}, err
	}
	if err := loadFile(filepath.Join(cfg.Dir, FileName), &cfg); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = strings.ToLower(envString("DISPLAYCTL_LOG_LEVEL", cfg.LogLevel))
	cfg.Debug = envBool("DISPLAYCTL_DEBUG", cfg.Debug)
	cfg.BusName = envString("DISPLAYCTL_BUS_NAME", cfg.BusName)
	cfg.ObjectPath = envString("DISPLAYCTL_OBJECT_PATH", cfg.ObjectPath)
	cfg.Interface = envString("DISPLAYCTL_INTERFACE", cfg.Interface)
	if _, set := os.LookupEnv("NO_COLOR"); set {
		cfg.Color = false
	}

	timeout, err := envDuration("DISPLAYCTL_CALL_TIMEOUT", cfg.CallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallTimeout = timeout

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultDir returns $XDG_CONFIG_HOME/displayctl, falling back to ~/.config/displayctl.
func DefaultDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// validate rejects values that would only fail later.
func (c Config) validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("log level %q is not valid", c.LogLevel)
	}
	if c.CallTimeout <= 0 {
		return errors.New("call timeout must be > 0")
	}
	if c.BusName == "" || c.Interface == "" {
		return errors.New("bus name and interface are required")
	}
	if !strings.HasPrefix(c.ObjectPath, "/") {
		return fmt.Errorf("object path %q must be absolute", c.ObjectPath)
	}
	return nil
}

// loadFile applies config.yaml on top of cfg. A missing file is not an error.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(fc.LogLevel))
	}
	if fc.CallTimeout != "" {
		d, err := time.ParseDuration(strings.TrimSpace(fc.CallTimeout))
		if err != nil {
			return fmt.Errorf("%s: call_timeout: %w", path, err)
		}
		cfg.CallTimeout = d
	}
	if fc.BusName != "" {
		cfg.BusName = fc.BusName
	}
	if fc.ObjectPath != "" {
		cfg.ObjectPath = fc.ObjectPath
	}
	if fc.Interface != "" {
		cfg.Interface = fc.Interface
	}
	if fc.Color != nil {
		cfg.Color = *fc.Color
	}
	return nil
}

// envString returns an env override when present, otherwise a default.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envDuration returns a duration env override when present, otherwise a default.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// envBool returns a bool env override when present, otherwise a default.
func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// loadEnvFile loads KEY=VALUE pairs from a .env file without overriding the real environment.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseEnvLine parses a single .env line into key/value.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
