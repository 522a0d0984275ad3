package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Name != "shinyhunt-go" {
		t.Errorf("Expected name 'shinyhunt-go', got '%s'", cfg.Name)
	}

	if cfg.Bridge.Host != "127.0.0.1" {
		t.Errorf("Expected host '127.0.0.1', got '%s'", cfg.Bridge.Host)
	}

	if cfg.Bridge.Port != 8765 {
		t.Errorf("Expected port 8765, got %d", cfg.Bridge.Port)
	}

	if cfg.Bridge.Role != "client" {
		t.Errorf("Expected role 'client', got '%s'", cfg.Bridge.Role)
	}

	if cfg.Hunt.PPThreshold != 4 {
		t.Errorf("Expected pp threshold 4, got %d", cfg.Hunt.PPThreshold)
	}

	if len(cfg.Hunt.PPRecoveryMoves) != 1 || cfg.Hunt.PPRecoveryMoves[0] != 0 {
		t.Errorf("Expected monitored slot [0], got %v", cfg.Hunt.PPRecoveryMoves)
	}

	if len(cfg.Hunt.ToGrassMacro) == 0 || len(cfg.Hunt.ToCenterMacro) == 0 {
		t.Error("Expected default walking macros")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "shinyhunt.json")

	testConfig := `{
		"bridge": {"host": "10.0.0.5", "port": 9999, "role": "server"},
		"hunt": {
			"to_grass_macro": [{"duration": 30, "buttons": ["UP"]}],
			"pp_threshold": 6,
			"pp_recovery_moves": [0, 1]
		}
	}`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Bridge.Host != "10.0.0.5" || cfg.Bridge.Port != 9999 || cfg.Bridge.Role != "server" {
		t.Errorf("Bridge section not loaded: %+v", cfg.Bridge)
	}
	if cfg.Hunt.PPThreshold != 6 {
		t.Errorf("Expected pp threshold 6, got %d", cfg.Hunt.PPThreshold)
	}
	if len(cfg.Hunt.ToGrassMacro) != 1 || cfg.Hunt.ToGrassMacro[0].Duration != 30 {
		t.Errorf("Macro not loaded: %v", cfg.Hunt.ToGrassMacro)
	}
	// Defaults survive for untouched sections.
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "shinyhunt.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("SHINYHUNT_HOST", "192.168.1.20")
	t.Setenv("SHINYHUNT_PORT", "4242")
	t.Setenv("SHINYHUNT_ROLE", "server")
	t.Setenv("SHINYHUNT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Bridge.Host != "192.168.1.20" {
		t.Errorf("Expected env host override, got %s", cfg.Bridge.Host)
	}
	if cfg.Bridge.Port != 4242 {
		t.Errorf("Expected env port override, got %d", cfg.Bridge.Port)
	}
	if cfg.Bridge.Role != "server" {
		t.Errorf("Expected env role override, got %s", cfg.Bridge.Role)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected env log level override, got %s", cfg.Logging.Level)
	}
}

func TestNormalize(t *testing.T) {
	cfg := NewConfig()
	cfg.Bridge.Role = "  SERVER "
	cfg.Logging.Level = "DEBUG"
	cfg.Emulator.Kind = " MGBA "
	cfg.Bridge.PollIntervalMillis = 0

	cfg.Normalize()

	if cfg.Bridge.Role != "server" {
		t.Errorf("Expected normalized role 'server', got %q", cfg.Bridge.Role)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected normalized level 'debug', got %q", cfg.Logging.Level)
	}
	if cfg.Emulator.Kind != "mgba" {
		t.Errorf("Expected normalized kind 'mgba', got %q", cfg.Emulator.Kind)
	}
	if cfg.Bridge.PollIntervalMillis != 50 {
		t.Errorf("Expected poll interval default 50, got %d", cfg.Bridge.PollIntervalMillis)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Bridge.Port = 0 }},
		{"empty host", func(c *Config) { c.Bridge.Host = "" }},
		{"bad role", func(c *Config) { c.Bridge.Role = "peer" }},
		{"bad poll interval", func(c *Config) { c.Bridge.PollIntervalMillis = -5 }},
		{"negative macro duration", func(c *Config) { c.Hunt.ToGrassMacro[0].Duration = -1 }},
		{"negative pp threshold", func(c *Config) { c.Hunt.PPThreshold = -1 }},
		{"no monitored slots", func(c *Config) { c.Hunt.PPRecoveryMoves = nil }},
		{"slot out of range", func(c *Config) { c.Hunt.PPRecoveryMoves = []int{4} }},
		{"empty encounter log", func(c *Config) { c.Hunt.EncounterLogPath = "" }},
		{"bad emulator kind", func(c *Config) { c.Emulator.Kind = "dolphin" }},
		{"autolaunch without path", func(c *Config) { c.Emulator.Autolaunch = true }},
		{"bad status port", func(c *Config) { c.Status.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestEnsureDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "shinyhunt.json")

	if err := EnsureDefaultConfig(configPath); err != nil {
		t.Fatalf("EnsureDefaultConfig failed: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Generated default config failed to load: %v", err)
	}
	if cfg.Bridge.Port != 8765 {
		t.Errorf("Expected default port in generated file, got %d", cfg.Bridge.Port)
	}

	// A second call must leave the existing file alone.
	if err := EnsureDefaultConfig(configPath); err != nil {
		t.Errorf("EnsureDefaultConfig on existing file failed: %v", err)
	}
}

func TestResolveConfigPathEnv(t *testing.T) {
	t.Setenv("SHINYHUNT_CONFIG_PATH", "/tmp/custom.json")
	path, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath failed: %v", err)
	}
	if path != "/tmp/custom.json" {
		t.Errorf("Expected env path, got %s", path)
	}
}
