package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/testutil"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:3000", "ws://localhost:3000/ws", false},
		{"https://kanban.example.com/", "wss://kanban.example.com/ws", false},
		{"http://proxy/kanban", "ws://proxy/kanban/ws", false},
		{"ftp://nope", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WebsocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testConfig(t *testing.T, env *testutil.Environment, name string) *config.KanbanConfig {
	cfg := config.Default()
	cfg.Client.ServerURL = env.URL()
	cfg.Client.SnapshotPath = filepath.Join(t.TempDir(), name+".db")
	cfg.Sync.ReconnectDelay = 50 * time.Millisecond
	cfg.Sync.ReconnectDelayMax = 200 * time.Millisecond
	cfg.Sync.ConnectTimeout = 2 * time.Second
	return cfg
}

func startSession(t *testing.T, cfg *config.KanbanConfig) *Session {
	t.Helper()
	s, err := Open(cfg, testutil.QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitConnected(ctx))
	return s
}

func TestTwoClientsStayInSync(t *testing.T) {
	env := testutil.SetupEnvironment(t)
	a := startSession(t, testConfig(t, env, "a"))
	b := startSession(t, testConfig(t, env, "b"))
	ctx := context.Background()

	assert.Equal(t, 6, a.Store.Len())
	assert.Equal(t, 6, b.Store.Len())

	t.Run("presence", func(t *testing.T) {
		aID := a.Transport.ConnectionID()
		require.NotEmpty(t, aID)
		testutil.WaitForCondition(t, "b sees a", func() bool {
			for _, e := range b.Engine.Roster().List() {
				if e.ConnectionID == aID {
					return true
				}
			}
			return false
		})
		testutil.WaitForCondition(t, "b knows its own id", func() bool {
			return b.Engine.Roster().Self() == b.Transport.ConnectionID()
		})
	})

	t.Run("create", func(t *testing.T) {
		card, err := a.Engine.CreateCard(ctx, board.ColumnInProgress, board.CardInput{Title: "Shared"})
		require.NoError(t, err)

		remote := testutil.WaitForCard(t, b.Store, card.ID, nil)
		assert.Equal(t, "Shared", remote.Title)
		assert.Equal(t, 2, remote.Order)
	})

	t.Run("move", func(t *testing.T) {
		_, err := a.Engine.MoveCard(ctx, "1", board.ColumnTodo, 0)
		require.NoError(t, err)

		testutil.WaitForCard(t, b.Store, "1", func(c *board.Card) bool {
			return c.Status == board.ColumnTodo && c.Order == 0
		})
		assert.Empty(t, b.Store.Read(board.ColumnDone))

		serverCard, ok := env.Server.Store().Get("1")
		require.True(t, ok)
		assert.Equal(t, board.ColumnTodo, serverCard.Status)
		assert.Equal(t, 0, serverCard.Order)
	})

	t.Run("update from the other side", func(t *testing.T) {
		_, err := b.Engine.UpdateCard(ctx, "3", board.CardPatch{Title: board.String("Edited by b")})
		require.NoError(t, err)

		testutil.WaitForCard(t, a.Store, "3", func(c *board.Card) bool { return c.Title == "Edited by b" })
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, a.Engine.DeleteCard(ctx, "4"))
		testutil.WaitForCondition(t, "b drops card 4", func() bool {
			_, ok := b.Store.Get("4")
			return !ok
		})
	})

	assert.Equal(t, a.Store.Columns(), b.Store.Columns())
	assert.Equal(t, env.Server.Store().Columns(), a.Store.Columns())
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	env := testutil.SetupEnvironment(t)
	cfg := testConfig(t, env, "restart")

	s := startSession(t, cfg)
	card, err := s.Engine.CreateCard(context.Background(), board.ColumnDone, board.CardInput{Title: "Remember me"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// offline: the server is never contacted
	cfg.Client.ServerURL = "http://127.0.0.1:1"
	reopened, err := Open(cfg, testutil.QuietLogger())
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Store.Get(card.ID)
	require.True(t, ok)
	assert.Equal(t, "Remember me", got.Title)
	assert.Equal(t, 7, reopened.Store.Len())
}

func TestNickname(t *testing.T) {
	env := testutil.SetupEnvironment(t)
	s, err := Open(testConfig(t, env, "nick"), testutil.QuietLogger())
	require.NoError(t, err)
	defer s.Close()

	name, err := s.Nickname()
	require.NoError(t, err)
	assert.Equal(t, "", name)

	stored, err := s.SetNickname(" grace ")
	require.NoError(t, err)
	assert.Equal(t, "grace", stored)

	name, err = s.Nickname()
	require.NoError(t, err)
	assert.Equal(t, "grace", name)
}

func TestWaitConnectedTimesOut(t *testing.T) {
	cfg := config.Default()
	cfg.Client.ServerURL = "http://127.0.0.1:1"
	cfg.Client.SnapshotPath = ""
	cfg.Sync.ReconnectDelay = 20 * time.Millisecond
	cfg.Sync.ReconnectDelayMax = 50 * time.Millisecond

	s, err := Open(cfg, testutil.QuietLogger())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = s.WaitConnected(ctx)
	assert.Error(t, err)

	_, err = s.SetNickname("x")
	assert.Error(t, err)
}
