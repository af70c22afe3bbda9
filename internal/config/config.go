package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "kanban.yml"

// KanbanConfig represents the top-level kanban.yml configuration
type KanbanConfig struct {
	Version string       `yaml:"version"`
	Board   BoardConfig  `yaml:"board"`
	Server  ServerConfig `yaml:"server"`
	Client  ClientConfig `yaml:"client"`
	Sync    SyncConfig   `yaml:"sync"`
	Log     LogConfig    `yaml:"log"`
}

// BoardConfig names the board served or joined
type BoardConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ServerConfig configures `kanban serve`
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin,omitempty"`
	RedisURL   string `yaml:"redis_url,omitempty"` // Empty keeps cards in memory only
	SeedDemo   bool   `yaml:"seed_demo_cards"`
}

// ClientConfig configures the CLI client session
type ClientConfig struct {
	ServerURL    string `yaml:"server_url"`
	SnapshotPath string `yaml:"snapshot_path"` // SQLite file holding the local snapshot and nickname
}

// SyncConfig tunes the realtime sync engine and transport
type SyncConfig struct {
	EmitInterval      time.Duration `yaml:"emit_interval"`
	EditDebounce      time.Duration `yaml:"edit_debounce"`
	SelfMoveTTL       time.Duration `yaml:"self_move_ttl"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ReconnectDelayMax time.Duration `yaml:"reconnect_delay_max"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
}

// LogConfig selects log level and format
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file exists.
func Default() *KanbanConfig {
	return &KanbanConfig{
		Version: "1.0",
		Board:   BoardConfig{ID: "default", Name: "Realtime Kanban"},
		Server:  ServerConfig{Addr: ":3000"},
		Client: ClientConfig{
			ServerURL:    "http://localhost:3000",
			SnapshotPath: "kanban.db",
		},
		Sync: SyncConfig{
			EmitInterval:      150 * time.Millisecond,
			EditDebounce:      300 * time.Millisecond,
			SelfMoveTTL:       5 * time.Second,
			ReconnectDelay:    time.Second,
			ReconnectDelayMax: 5 * time.Second,
			ConnectTimeout:    20 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Validate performs strict validation on the configuration
func (c *KanbanConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.Board.ID) == "" {
		return fmt.Errorf("board.id is required")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"sync.emit_interval", c.Sync.EmitInterval},
		{"sync.edit_debounce", c.Sync.EditDebounce},
		{"sync.self_move_ttl", c.Sync.SelfMoveTTL},
		{"sync.reconnect_delay", c.Sync.ReconnectDelay},
		{"sync.reconnect_delay_max", c.Sync.ReconnectDelayMax},
		{"sync.connect_timeout", c.Sync.ConnectTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.Sync.ReconnectDelayMax < c.Sync.ReconnectDelay {
		return fmt.Errorf("sync.reconnect_delay_max (%s) must be >= sync.reconnect_delay (%s)",
			c.Sync.ReconnectDelayMax, c.Sync.ReconnectDelay)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level '%s' is invalid (valid: debug, info, warn, error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format '%s' is invalid (valid: text, json)", c.Log.Format)
	}

	return nil
}

// ApplyEnv overrides fields from KANBAN_* environment variables.
func (c *KanbanConfig) ApplyEnv() {
	if v := os.Getenv("KANBAN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("KANBAN_REDIS_URL"); v != "" {
		c.Server.RedisURL = v
	}
	if v := os.Getenv("KANBAN_SERVER_URL"); v != "" {
		c.Client.ServerURL = v
	}
	if v := os.Getenv("KANBAN_BOARD_ID"); v != "" {
		c.Board.ID = v
	}
	if v := os.Getenv("KANBAN_SNAPSHOT_PATH"); v != "" {
		c.Client.SnapshotPath = v
	}
	if os.Getenv("DEBUG") == "true" {
		c.Log.Level = "debug"
	}
}

// Load reads kanban.yml from path on top of the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error: the defaults are used.
func Load(path string) (*KanbanConfig, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Write serialises the configuration to path.
func (c *KanbanConfig) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
