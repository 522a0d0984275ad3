package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkmn-tools/shinyhunt-go/bridge"
)

// Config is the top-level bot configuration.
type Config struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Bridge   Bridge   `json:"bridge"`
	Hunt     Hunt     `json:"hunt"`
	Emulator Emulator `json:"emulator"`
	Status   Status   `json:"status"`
	Logging  Logging  `json:"logging"`
}

// Bridge configures the TCP link to the emulator-side Lua script.
type Bridge struct {
	Host                  string `json:"host"`
	Port                  int    `json:"port"`
	Role                  string `json:"role"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
	PollIntervalMillis    int    `json:"poll_interval_ms"`
}

// Hunt configures the hunting state machine and its encounter sinks.
type Hunt struct {
	ToGrassMacro     []bridge.MacroStep `json:"to_grass_macro"`
	ToCenterMacro    []bridge.MacroStep `json:"to_center_macro"`
	PPThreshold      int                `json:"pp_threshold"`
	PPRecoveryMoves  []int              `json:"pp_recovery_moves"`
	EncounterLogPath string             `json:"encounter_log_path"`
	EncounterDBPath  string             `json:"encounter_db_path,omitempty"`
}

// Emulator configures optional emulator autolaunch.
type Emulator struct {
	Kind       string   `json:"kind"`
	Path       string   `json:"path"`
	ROMPath    string   `json:"rom_path"`
	LuaScript  string   `json:"lua_script"`
	ExtraArgs  []string `json:"extra_args,omitempty"`
	Autolaunch bool     `json:"autolaunch"`
}

// Status configures the operator HTTP surface.
type Status struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return &Config{
		Name:    "shinyhunt-go",
		Version: "0.1.0",
		Bridge: Bridge{
			Host:                  "127.0.0.1",
			Port:                  8765,
			Role:                  string(bridge.RoleClient),
			ConnectTimeoutSeconds: 30,
			PollIntervalMillis:    50,
		},
		Hunt: Hunt{
			ToGrassMacro: []bridge.MacroStep{
				{Duration: 60, Buttons: []string{"UP"}},
				{Duration: 20, Buttons: []string{"RIGHT"}},
			},
			ToCenterMacro: []bridge.MacroStep{
				{Duration: 20, Buttons: []string{"LEFT"}},
				{Duration: 60, Buttons: []string{"DOWN"}},
			},
			PPThreshold:      4,
			PPRecoveryMoves:  []int{0},
			EncounterLogPath: filepath.Join(home, ".shinyhunt", "logs", "encounters.log"),
		},
		Emulator: Emulator{
			Kind:       "mgba",
			LuaScript:  "shiny_hunt",
			Autolaunch: false,
		},
		Status: Status{
			Enabled: true,
			Host:    "localhost",
			Port:    9177,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
			Path:   filepath.Join(home, ".shinyhunt", "logs", "bot.log"),
		},
	}
}

// LoadConfig loads the configuration from a file.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Environment variables take precedence over the file.
	applyEnvOverrides(cfg)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("SHINYHUNT_HOST"); host != "" {
		cfg.Bridge.Host = host
	}

	if portStr := os.Getenv("SHINYHUNT_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Bridge.Port = port
		} else {
			log.Printf("warning: ignoring invalid SHINYHUNT_PORT value %q: %v", portStr, err)
		}
	}

	if role := os.Getenv("SHINYHUNT_ROLE"); role != "" {
		cfg.Bridge.Role = role
	}

	if logLevel := os.Getenv("SHINYHUNT_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if logPath := os.Getenv("SHINYHUNT_LOG_PATH"); logPath != "" {
		cfg.Logging.Path = logPath
	}

	if encounterLog := os.Getenv("SHINYHUNT_ENCOUNTER_LOG"); encounterLog != "" {
		cfg.Hunt.EncounterLogPath = encounterLog
	}

	if emulatorPath := os.Getenv("SHINYHUNT_EMULATOR"); emulatorPath != "" {
		cfg.Emulator.Path = emulatorPath
	}

	if romPath := os.Getenv("SHINYHUNT_ROM"); romPath != "" {
		cfg.Emulator.ROMPath = romPath
	}

	if autolaunch := os.Getenv("SHINYHUNT_AUTOLAUNCH"); autolaunch != "" {
		if parsed, err := strconv.ParseBool(autolaunch); err == nil {
			cfg.Emulator.Autolaunch = parsed
		} else {
			log.Printf("warning: ignoring invalid SHINYHUNT_AUTOLAUNCH value %q: %v", autolaunch, err)
		}
	}

	if statusEnabled := os.Getenv("SHINYHUNT_STATUS_ENABLED"); statusEnabled != "" {
		if parsed, err := strconv.ParseBool(statusEnabled); err == nil {
			cfg.Status.Enabled = parsed
		} else {
			log.Printf("warning: ignoring invalid SHINYHUNT_STATUS_ENABLED value %q: %v", statusEnabled, err)
		}
	}

	if statusPort := os.Getenv("SHINYHUNT_STATUS_PORT"); statusPort != "" {
		if port, err := strconv.Atoi(statusPort); err == nil {
			cfg.Status.Port = port
		} else {
			log.Printf("warning: ignoring invalid SHINYHUNT_STATUS_PORT value %q: %v", statusPort, err)
		}
	}
}

// Normalize canonicalizes config values so validation and runtime logic
// operate on stable representations.
func (c *Config) Normalize() {
	c.Bridge.Host = strings.TrimSpace(c.Bridge.Host)
	c.Bridge.Role = strings.ToLower(strings.TrimSpace(c.Bridge.Role))
	c.Emulator.Kind = strings.ToLower(strings.TrimSpace(c.Emulator.Kind))
	c.Emulator.Path = strings.TrimSpace(c.Emulator.Path)
	c.Emulator.ROMPath = strings.TrimSpace(c.Emulator.ROMPath)
	c.Emulator.LuaScript = strings.TrimSpace(c.Emulator.LuaScript)
	c.Status.Host = strings.TrimSpace(c.Status.Host)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
	if c.Bridge.ConnectTimeoutSeconds == 0 {
		c.Bridge.ConnectTimeoutSeconds = 30
	}
	if c.Bridge.PollIntervalMillis == 0 {
		c.Bridge.PollIntervalMillis = 50
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		return errors.New("invalid bridge port number")
	}

	if c.Bridge.Host == "" {
		return errors.New("bridge host cannot be empty")
	}

	validRoles := map[string]bool{
		string(bridge.RoleClient): true,
		string(bridge.RoleServer): true,
	}
	if !validRoles[c.Bridge.Role] {
		return fmt.Errorf("invalid bridge role %q: expected one of [client server]", c.Bridge.Role)
	}

	if c.Bridge.ConnectTimeoutSeconds < 0 {
		return errors.New("connect timeout cannot be negative")
	}

	if c.Bridge.PollIntervalMillis < 1 || c.Bridge.PollIntervalMillis > 10000 {
		return fmt.Errorf("invalid poll interval %dms: expected range 1..10000", c.Bridge.PollIntervalMillis)
	}

	for _, macro := range [][]bridge.MacroStep{c.Hunt.ToGrassMacro, c.Hunt.ToCenterMacro} {
		for _, step := range macro {
			if step.Duration < 0 {
				return fmt.Errorf("invalid macro step duration %d: cannot be negative", step.Duration)
			}
		}
	}

	if c.Hunt.PPThreshold < 0 {
		return errors.New("pp threshold cannot be negative")
	}

	if len(c.Hunt.PPRecoveryMoves) == 0 {
		return errors.New("at least one pp recovery move slot must be monitored")
	}
	for _, slot := range c.Hunt.PPRecoveryMoves {
		if slot < 0 || slot > 3 {
			return fmt.Errorf("invalid pp recovery move slot %d: expected range 0..3", slot)
		}
	}

	if c.Hunt.EncounterLogPath == "" {
		return errors.New("encounter log path cannot be empty")
	}

	validEmulatorKinds := map[string]bool{
		"mgba":    true,
		"bizhawk": true,
	}
	if !validEmulatorKinds[c.Emulator.Kind] {
		return fmt.Errorf("invalid emulator kind %q: expected one of [mgba bizhawk]", c.Emulator.Kind)
	}
	if c.Emulator.Autolaunch {
		if c.Emulator.Path == "" {
			return errors.New("emulator path is required when autolaunch is enabled")
		}
		if c.Emulator.ROMPath == "" {
			return errors.New("rom path is required when autolaunch is enabled")
		}
	}

	if c.Status.Enabled {
		if c.Status.Port <= 0 || c.Status.Port > 65535 {
			return errors.New("invalid status port number")
		}
		if c.Status.Host == "" {
			return errors.New("status host cannot be empty")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("invalid log level")
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.New("invalid log format")
	}

	return nil
}

// ResolveConfigPath returns the path that should be used for configuration.
func ResolveConfigPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv("SHINYHUNT_CONFIG_PATH")); path != "" {
		return path, nil
	}

	if _, err := os.Stat("config/shinyhunt.json"); err == nil {
		return "config/shinyhunt.json", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".shinyhunt", "config", "shinyhunt.json"), nil
}

// EnsureDefaultConfig creates a default config file if one does not exist.
func EnsureDefaultConfig(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path cannot be empty")
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := NewConfig()
	defaultConfig.Normalize()
	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}
