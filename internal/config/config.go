// Package config provides configuration management for nova.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Defaults applied when a setting is absent everywhere.
const (
	DefaultWorkerPort            = 37700
	DefaultAgentName             = "NOVA"
	DefaultMissionStatus         = "ACTIVE"
	DefaultDBDriver              = "sqlite"
	DefaultMaxConns              = 4
	DefaultSessionTimeoutMinutes = 30
)

// Settings keys. The same names work as settings.json keys and as
// environment variables; the environment wins.
const (
	keyWorkerPort     = "NOVA_WORKER_PORT"
	keyAgentName      = "NOVA_AGENT_NAME"
	keyMissionStatus  = "NOVA_MISSION_STATUS"
	keyCatalogPaths   = "NOVA_CATALOG_PATHS"
	keyDBDriver       = "NOVA_DB_DRIVER"
	keyPostgresDSN    = "NOVA_POSTGRES_DSN"
	keyMaxConns       = "NOVA_MAX_CONNS"
	keySessionTimeout = "NOVA_SESSION_TIMEOUT_MINUTES"
)

// Config holds the runtime configuration.
type Config struct {
	WorkerPort            int
	AgentName             string
	MissionStatus         string
	CatalogPaths          []string // custom catalog files, merged in order after the built-in set
	DBDriver              string   // "sqlite" or "postgres"
	PostgresDSN           string
	MaxConns              int
	SessionTimeoutMinutes int
}

// SessionTimeout returns the idle timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// Default returns the built-in configuration values.
func Default() *Config {
	return &Config{
		WorkerPort:            DefaultWorkerPort,
		AgentName:             DefaultAgentName,
		MissionStatus:         DefaultMissionStatus,
		DBDriver:              DefaultDBDriver,
		MaxConns:              DefaultMaxConns,
		SessionTimeoutMinutes: DefaultSessionTimeoutMinutes,
	}
}

var (
	global     *Config
	globalOnce sync.Once
)

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("config load failed, using defaults")
			cfg = Default()
		}
		global = cfg
	})
	return global
}

// Load reads settings.json from the data directory and applies
// environment overrides on top. A missing or unparseable settings file
// falls back to defaults rather than blocking startup.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Warn().Err(err).Str("path", SettingsPath()).Msg("invalid settings file, using defaults")
		applyEnv(cfg)
		return cfg, nil
	}

	applySettings(cfg, settings)
	applyEnv(cfg)
	return cfg, nil
}

// DataDir returns the nova data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nova"
	}
	return filepath.Join(home, ".nova")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "nova.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	defaults := map[string]any{
		keyWorkerPort:     DefaultWorkerPort,
		keyAgentName:      DefaultAgentName,
		keyMissionStatus:  DefaultMissionStatus,
		keyCatalogPaths:   "",
		keyDBDriver:       DefaultDBDriver,
		keyPostgresDSN:    "",
		keyMaxConns:       DefaultMaxConns,
		keySessionTimeout: DefaultSessionTimeoutMinutes,
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// GetWorkerPort returns the worker port, preferring the environment
// over the loaded configuration.
func GetWorkerPort() int {
	if v := os.Getenv(keyWorkerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}

func applySettings(cfg *Config, settings map[string]any) {
	if v, ok := intSetting(settings, keyWorkerPort); ok && v > 0 {
		cfg.WorkerPort = v
	}
	if v, ok := strSetting(settings, keyAgentName); ok && v != "" {
		cfg.AgentName = v
	}
	if v, ok := strSetting(settings, keyMissionStatus); ok && v != "" {
		cfg.MissionStatus = v
	}
	if v, ok := strSetting(settings, keyCatalogPaths); ok {
		cfg.CatalogPaths = splitTrim(v)
	}
	if v, ok := strSetting(settings, keyDBDriver); ok && v != "" {
		cfg.DBDriver = v
	}
	if v, ok := strSetting(settings, keyPostgresDSN); ok && v != "" {
		cfg.PostgresDSN = v
	}
	if v, ok := intSetting(settings, keyMaxConns); ok && v > 0 {
		cfg.MaxConns = v
	}
	if v, ok := intSetting(settings, keySessionTimeout); ok && v > 0 {
		cfg.SessionTimeoutMinutes = v
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(keyWorkerPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerPort = n
		}
	}
	if v := os.Getenv(keyAgentName); v != "" {
		cfg.AgentName = v
	}
	if v := os.Getenv(keyMissionStatus); v != "" {
		cfg.MissionStatus = v
	}
	if v := os.Getenv(keyCatalogPaths); v != "" {
		cfg.CatalogPaths = splitTrim(v)
	}
	if v := os.Getenv(keyDBDriver); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv(keyPostgresDSN); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv(keyMaxConns); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConns = n
		}
	}
	if v := os.Getenv(keySessionTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTimeoutMinutes = n
		}
	}
}

// intSetting reads an integer setting, accepting JSON numbers and
// numeric strings.
func intSetting(settings map[string]any, key string) (int, bool) {
	switch v := settings[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func strSetting(settings map[string]any, key string) (string, bool) {
	v, ok := settings[key].(string)
	return v, ok
}

// splitTrim splits a comma-separated value, trimming whitespace and
// dropping empty elements. The result is never nil.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
