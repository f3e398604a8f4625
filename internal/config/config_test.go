package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diogo/aichat/internal/models"
)

// clearEnv unsets every variable LoadConfig reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AICHAT_BASE_URL", "AICHAT_TIMEOUT", "AICHAT_RETRIEVAL_K",
		"AICHAT_VERBOSE", "AICHAT_LOG_FILE", "GLAMOUR_STYLE", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != models.DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", cfg.BaseURL, models.DefaultBaseURL)
	}
	if cfg.TimeoutSeconds != 300 {
		t.Errorf("TimeoutSeconds = %d, want 300", cfg.TimeoutSeconds)
	}
	if cfg.RetrievalK != 4 {
		t.Errorf("RetrievalK = %d, want 4", cfg.RetrievalK)
	}
	if cfg.Verbose {
		t.Error("Verbose should default to false")
	}
	if cfg.Markdown.Style != "dark" {
		t.Errorf("Markdown.Style = %s, want dark", cfg.Markdown.Style)
	}
}

func TestConfig_Timeout(t *testing.T) {
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{300, 5 * time.Minute},
		{1, time.Second},
		{0, 0},
		{-5, 0},
	}

	for _, tt := range tests {
		cfg := Config{TimeoutSeconds: tt.seconds}
		if got := cfg.Timeout(); got != tt.want {
			t.Errorf("Timeout(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Run("home override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(HomeEnv, dir)

		got, err := GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() returned error: %v", err)
		}
		if got != dir {
			t.Errorf("GetConfigDir() = %s, want %s", got, dir)
		}
	})

	t.Run("user home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(HomeEnv, "")
		t.Setenv("HOME", home)

		got, err := GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() returned error: %v", err)
		}
		if got != filepath.Join(home, ".aichat") {
			t.Errorf("GetConfigDir() = %s", got)
		}
	})
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	configPath, _ := GetConfigPath()
	if configPath != filepath.Join(dir, "config.json") {
		t.Errorf("GetConfigPath() = %s", configPath)
	}
	settingsPath, _ := GetSettingsPath()
	if settingsPath != filepath.Join(dir, "settings.json") {
		t.Errorf("GetSettingsPath() = %s", settingsPath)
	}

	logPath, _ := GetLogPath(Config{})
	if logPath != filepath.Join(dir, "aichat.log") {
		t.Errorf("GetLogPath() = %s", logPath)
	}
	logPath, _ = GetLogPath(Config{LogFile: "/tmp/custom.log"})
	if logPath != "/tmp/custom.log" {
		t.Errorf("GetLogPath() = %s", logPath)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "aichat")
	t.Setenv(HomeEnv, dir)

	got, err := EnsureConfigDir()
	if err != nil {
		t.Fatalf("EnsureConfigDir() returned error: %v", err)
	}

	info, err := os.Stat(got)
	if err != nil {
		t.Fatalf("Directory does not exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("Path is not a directory")
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("Directory permissions = %o, want 700", perm)
	}
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	cfg := DefaultConfig()
	cfg.BaseURL = "http://example.test:9000"
	cfg.Verbose = true
	cfg.APIKey = "sk-secret"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	configPath := filepath.Join(dir, "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Failed to parse saved config: %v", err)
	}
	if saved.BaseURL != cfg.BaseURL {
		t.Errorf("BaseURL = %s, want %s", saved.BaseURL, cfg.BaseURL)
	}
	if !saved.Verbose {
		t.Error("Verbose was not saved")
	}
	if saved.APIKey != "" {
		t.Error("APIKey must never be written to config.json")
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat config file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("File permissions = %o, want 600", perm)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	clearEnv(t)
	t.Setenv(HomeEnv, t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_WithExistingFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	data := `{"base_url": "http://file.test", "retrieval_k": 8, "markdown": {"style": "light"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.BaseURL != "http://file.test" {
		t.Errorf("BaseURL = %s", cfg.BaseURL)
	}
	if cfg.RetrievalK != 8 {
		t.Errorf("RetrievalK = %d, want 8", cfg.RetrievalK)
	}
	if cfg.Markdown.Style != "light" {
		t.Errorf("Markdown.Style = %s, want light", cfg.Markdown.Style)
	}
	// fields absent from the file keep their defaults
	if cfg.TimeoutSeconds != 300 {
		t.Errorf("TimeoutSeconds = %d, want 300", cfg.TimeoutSeconds)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	data := `{"base_url": "http://file.test", "timeout_seconds": 60}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("AICHAT_BASE_URL", "http://env.test")
	t.Setenv("AICHAT_VERBOSE", "true")
	t.Setenv("GLAMOUR_STYLE", "notty")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.BaseURL != "http://env.test" {
		t.Errorf("BaseURL = %s, want env value", cfg.BaseURL)
	}
	if cfg.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want file value 60", cfg.TimeoutSeconds)
	}
	if !cfg.Verbose {
		t.Error("Verbose should come from the environment")
	}
	if cfg.Markdown.Style != "notty" {
		t.Errorf("Markdown.Style = %s, want notty", cfg.Markdown.Style)
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("APIKey = %s, want sk-env", cfg.APIKey)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"invalid": json`), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig()
	if err == nil {
		t.Error("LoadConfig() with invalid JSON should return error")
	}
	if cfg.BaseURL != models.DefaultBaseURL {
		t.Errorf("BaseURL = %s, want default", cfg.BaseURL)
	}
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(HomeEnv, t.TempDir())
	t.Setenv("AICHAT_TIMEOUT", "soon")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() with a non-numeric timeout should return error")
	}
}
