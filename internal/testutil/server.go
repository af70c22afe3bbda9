package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/kanban/internal/cardstore"
	"github.com/dyluth/kanban/internal/server"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Environment is an in-process kanban server backed by miniredis.
type Environment struct {
	T      *testing.T
	Ctx    context.Context
	Redis  *miniredis.Miniredis
	Client *board.Client
	Server *server.Server
	HTTP   *httptest.Server
}

// SetupEnvironment starts a server seeded with the demo cards. Everything is
// torn down when the test ends.
func SetupEnvironment(t *testing.T) *Environment {
	t.Helper()
	return SetupEnvironmentWithRedis(t, miniredis.RunT(t))
}

// SetupEnvironmentWithRedis starts a server node on an existing miniredis,
// so several nodes can share one board.
func SetupEnvironmentWithRedis(t *testing.T, mr *miniredis.Miniredis) *Environment {
	t.Helper()
	ctx := context.Background()

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, board.DefaultBoardID)
	require.NoError(t, err, "Failed to create board client")
	t.Cleanup(func() { client.Close() })

	srv, err := server.New(ctx, server.Config{
		Persistence: client,
		SeedDemo:    true,
		Logger:      QuietLogger(),
	})
	require.NoError(t, err, "Failed to start server")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})

	return &Environment{T: t, Ctx: ctx, Redis: mr, Client: client, Server: srv, HTTP: ts}
}

// URL is the server's base http URL.
func (env *Environment) URL() string {
	return env.HTTP.URL
}

// WebsocketURL is the server's realtime endpoint.
func (env *Environment) WebsocketURL() string {
	return "ws" + strings.TrimPrefix(env.HTTP.URL, "http") + "/ws"
}

// WaitForCard polls store until the card with id satisfies match (up to 5
// seconds). A nil match waits for the card to exist.
func WaitForCard(t *testing.T, store *cardstore.Store, id string, match func(*board.Card) bool) *board.Card {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if card, ok := store.Get(id); ok && (match == nil || match(card)) {
			return card
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Fail(t, fmt.Sprintf("Card %s did not reach the expected state within 5 seconds", id))
	return nil
}

// WaitForCondition polls cond until it holds (up to 5 seconds).
func WaitForCondition(t *testing.T, what string, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond, what)
}

// QuietLogger discards everything below panic level.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
