package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(DefaultAgentName, cfg.AgentName)
	s.Equal(DefaultMissionStatus, cfg.MissionStatus)
	s.Empty(cfg.CatalogPaths)
	s.Equal(DefaultDBDriver, cfg.DBDriver)
	s.Empty(cfg.PostgresDSN)
	s.Equal(DefaultMaxConns, cfg.MaxConns)
	s.Equal(DefaultSessionTimeoutMinutes, cfg.SessionTimeoutMinutes)
}

// TestSessionTimeout tests the timeout duration conversion.
func (s *ConfigSuite) TestSessionTimeout() {
	cfg := Default()
	s.Equal(30*time.Minute, cfg.SessionTimeout())

	cfg.SessionTimeoutMinutes = 5
	s.Equal(5*time.Minute, cfg.SessionTimeout())
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Contains(dir, ".nova")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	path := DBPath()
	s.Contains(path, "nova.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	path := SettingsPath()
	s.Contains(path, "settings.json")
}

// TestEnsureDataDir tests data directory creation.
func (s *ConfigSuite) TestEnsureDataDir() {
	err := EnsureDataDir()
	s.NoError(err)

	dir := DataDir()
	info, err := os.Stat(dir)
	s.NoError(err)
	s.True(info.IsDir())
}

// TestEnsureSettings tests settings file creation.
func (s *ConfigSuite) TestEnsureSettings() {
	// First ensure data dir exists
	err := EnsureDataDir()
	s.NoError(err)

	// Ensure settings creates default file
	err = EnsureSettings()
	s.NoError(err)

	path := SettingsPath()
	info, err := os.Stat(path)
	s.NoError(err)
	s.False(info.IsDir())

	// Second call should not error (file exists)
	err = EnsureSettings()
	s.NoError(err)
}

// TestEnsureSettings_PreservesExisting tests that an edited settings file
// is left untouched.
func (s *ConfigSuite) TestEnsureSettings_PreservesExisting() {
	err := EnsureDataDir()
	s.Require().NoError(err)

	custom := []byte(`{"NOVA_AGENT_NAME": "ORION"}`)
	err = os.WriteFile(SettingsPath(), custom, 0600)
	s.Require().NoError(err)

	err = EnsureSettings()
	s.NoError(err)

	data, err := os.ReadFile(SettingsPath())
	s.Require().NoError(err)
	s.Equal(custom, data)
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	err := EnsureAll()
	s.NoError(err)

	// Verify dir and settings exist
	_, err = os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	// A fresh settings file should load back as the defaults
	cfg, err := Load()
	s.NoError(err)
	s.Equal(Default(), cfg)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name            string
		settingsJSON    string
		expectedPort    int
		expectedAgent   string
		expectedTimeout int
	}{
		{
			name:            "no settings file",
			settingsJSON:    "",
			expectedPort:    DefaultWorkerPort,
			expectedAgent:   DefaultAgentName,
			expectedTimeout: DefaultSessionTimeoutMinutes,
		},
		{
			name:            "custom port",
			settingsJSON:    `{"NOVA_WORKER_PORT": 38888}`,
			expectedPort:    38888,
			expectedAgent:   DefaultAgentName,
			expectedTimeout: DefaultSessionTimeoutMinutes,
		},
		{
			name:            "numeric string port",
			settingsJSON:    `{"NOVA_WORKER_PORT": "39000"}`,
			expectedPort:    39000,
			expectedAgent:   DefaultAgentName,
			expectedTimeout: DefaultSessionTimeoutMinutes,
		},
		{
			name:            "zero port ignored",
			settingsJSON:    `{"NOVA_WORKER_PORT": 0}`,
			expectedPort:    DefaultWorkerPort,
			expectedAgent:   DefaultAgentName,
			expectedTimeout: DefaultSessionTimeoutMinutes,
		},
		{
			name:            "custom agent name",
			settingsJSON:    `{"NOVA_AGENT_NAME": "ORION"}`,
			expectedPort:    DefaultWorkerPort,
			expectedAgent:   "ORION",
			expectedTimeout: DefaultSessionTimeoutMinutes,
		},
		{
			name:            "custom session timeout",
			settingsJSON:    `{"NOVA_SESSION_TIMEOUT_MINUTES": 45}`,
			expectedPort:    DefaultWorkerPort,
			expectedAgent:   DefaultAgentName,
			expectedTimeout: 45,
		},
		{
			name:            "multiple settings",
			settingsJSON:    `{"NOVA_WORKER_PORT": 39999, "NOVA_AGENT_NAME": "VEGA", "NOVA_SESSION_TIMEOUT_MINUTES": 10}`,
			expectedPort:    39999,
			expectedAgent:   "VEGA",
			expectedTimeout: 10,
		},
		{
			name:            "invalid JSON returns defaults",
			settingsJSON:    `{invalid}`,
			expectedPort:    DefaultWorkerPort,
			expectedAgent:   DefaultAgentName,
			expectedTimeout: DefaultSessionTimeoutMinutes,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			// Create fresh temp dir
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			// Create data dir
			err = os.MkdirAll(filepath.Join(tempDir, ".nova"), 0750)
			s.Require().NoError(err)

			if tt.settingsJSON != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".nova", "settings.json"),
					[]byte(tt.settingsJSON),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.WorkerPort)
			s.Equal(tt.expectedAgent, cfg.AgentName)
			s.Equal(tt.expectedTimeout, cfg.SessionTimeoutMinutes)
		})
	}
}

// TestLoad_DatabaseSettings tests database-related settings loading.
func TestLoad_DatabaseSettings(t *testing.T) {
	// Create temp dir
	tempDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	// Create data dir and settings
	err = os.MkdirAll(filepath.Join(tempDir, ".nova"), 0750)
	require.NoError(t, err)

	settingsJSON := `{
		"NOVA_DB_DRIVER": "postgres",
		"NOVA_POSTGRES_DSN": "host=localhost dbname=nova",
		"NOVA_MAX_CONNS": 8,
		"NOVA_CATALOG_PATHS": "extra.json, local.yaml"
	}`
	err = os.WriteFile(
		filepath.Join(tempDir, ".nova", "settings.json"),
		[]byte(settingsJSON),
		0600,
	)
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "host=localhost dbname=nova", cfg.PostgresDSN)
	assert.Equal(t, 8, cfg.MaxConns)
	assert.Equal(t, []string{"extra.json", "local.yaml"}, cfg.CatalogPaths)
}

// TestLoad_EnvOverridesSettings tests that environment variables win over
// the settings file.
func TestLoad_EnvOverridesSettings(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	err = os.MkdirAll(filepath.Join(tempDir, ".nova"), 0750)
	require.NoError(t, err)

	settingsJSON := `{"NOVA_AGENT_NAME": "ORION", "NOVA_WORKER_PORT": 38888}`
	err = os.WriteFile(
		filepath.Join(tempDir, ".nova", "settings.json"),
		[]byte(settingsJSON),
		0600,
	)
	require.NoError(t, err)

	os.Setenv("NOVA_AGENT_NAME", "VEGA")
	defer os.Unsetenv("NOVA_AGENT_NAME")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "VEGA", cfg.AgentName)
	assert.Equal(t, 38888, cfg.WorkerPort)
}

// TestGet tests the global config getter.
func TestGet(t *testing.T) {
	// Save and restore HOME
	origHome := os.Getenv("HOME")
	tempDir, err := os.MkdirTemp("", "config-get-test-*")
	require.NoError(t, err)
	defer func() {
		os.Setenv("HOME", origHome)
		os.RemoveAll(tempDir)
	}()
	os.Setenv("HOME", tempDir)

	// Create data dir
	err = os.MkdirAll(filepath.Join(tempDir, ".nova"), 0750)
	require.NoError(t, err)

	// Get() should return a valid config
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Greater(t, cfg.WorkerPort, 0)
	assert.NotEmpty(t, cfg.AgentName)
}

// TestGetWorkerPort_WithEnv tests GetWorkerPort with environment variable.
func TestGetWorkerPort_WithEnv(t *testing.T) {
	// Save original env
	origEnv := os.Getenv("NOVA_WORKER_PORT")
	defer os.Setenv("NOVA_WORKER_PORT", origEnv)

	// Test with valid port in env
	os.Setenv("NOVA_WORKER_PORT", "45678")
	port := GetWorkerPort()
	assert.Equal(t, 45678, port)

	// Test with invalid port (should fall back to config)
	os.Setenv("NOVA_WORKER_PORT", "not-a-number")
	port = GetWorkerPort()
	assert.Equal(t, Get().WorkerPort, port)

	// Test with zero port (should fall back to config)
	os.Setenv("NOVA_WORKER_PORT", "0")
	port = GetWorkerPort()
	assert.Equal(t, Get().WorkerPort, port)

	// Test with no env (should use config)
	os.Unsetenv("NOVA_WORKER_PORT")
	port = GetWorkerPort()
	assert.Equal(t, Get().WorkerPort, port)
}

// TestSplitTrim tests the splitTrim helper function.
func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single value",
			input:    "extra.json",
			expected: []string{"extra.json"},
		},
		{
			name:     "multiple values",
			input:    "extra.json,local.yaml,site.json",
			expected: []string{"extra.json", "local.yaml", "site.json"},
		},
		{
			name:     "values with spaces",
			input:    " extra.json , local.yaml ",
			expected: []string{"extra.json", "local.yaml"},
		},
		{
			name:     "empty values filtered",
			input:    "extra.json,,local.yaml,,",
			expected: []string{"extra.json", "local.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
