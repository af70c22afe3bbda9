package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kanban.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
board:
  id: team
  name: Team Board
server:
  addr: ":8080"
  redis_url: redis://localhost:6379/0
  seed_demo_cards: true
sync:
  emit_interval: 200ms
  reconnect_delay: 2s
  reconnect_delay_max: 10s
log:
  level: debug
  format: json
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "team", config.Board.ID)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, "redis://localhost:6379/0", config.Server.RedisURL)
	assert.True(t, config.Server.SeedDemo)
	assert.Equal(t, 200*time.Millisecond, config.Sync.EmitInterval)
	assert.Equal(t, 2*time.Second, config.Sync.ReconnectDelay)
	assert.Equal(t, 10*time.Second, config.Sync.ReconnectDelayMax)
	assert.Equal(t, "json", config.Log.Format)

	// unset fields keep their defaults
	assert.Equal(t, 300*time.Millisecond, config.Sync.EditDebounce)
	assert.Equal(t, 20*time.Second, config.Sync.ConnectTimeout)
	assert.Equal(t, "kanban.db", config.Client.SnapshotPath)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
board:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KANBAN_ADDR", ":9999")
	t.Setenv("KANBAN_REDIS_URL", "redis://cache:6379")
	t.Setenv("KANBAN_SERVER_URL", "http://kanban:3000")
	t.Setenv("KANBAN_BOARD_ID", "env-board")
	t.Setenv("KANBAN_SNAPSHOT_PATH", "/tmp/snap.db")
	t.Setenv("DEBUG", "true")

	config, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", config.Server.Addr)
	assert.Equal(t, "redis://cache:6379", config.Server.RedisURL)
	assert.Equal(t, "http://kanban:3000", config.Client.ServerURL)
	assert.Equal(t, "env-board", config.Board.ID)
	assert.Equal(t, "/tmp/snap.db", config.Client.SnapshotPath)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *KanbanConfig)
		errMsg string
	}{
		{"wrong version", func(c *KanbanConfig) { c.Version = "2.0" }, "unsupported version"},
		{"empty board id", func(c *KanbanConfig) { c.Board.ID = " " }, "board.id is required"},
		{"empty addr", func(c *KanbanConfig) { c.Server.Addr = "" }, "server.addr is required"},
		{"zero emit interval", func(c *KanbanConfig) { c.Sync.EmitInterval = 0 }, "sync.emit_interval must be positive"},
		{"negative timeout", func(c *KanbanConfig) { c.Sync.ConnectTimeout = -time.Second }, "sync.connect_timeout must be positive"},
		{"max below initial", func(c *KanbanConfig) { c.Sync.ReconnectDelayMax = 500 * time.Millisecond }, "must be >= sync.reconnect_delay"},
		{"bad log level", func(c *KanbanConfig) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *KanbanConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.yml")
	c := Default()
	c.Board.ID = "written"
	require.NoError(t, c.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
