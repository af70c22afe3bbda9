package board

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-board")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func newCard(title string, status ColumnID, order int) *Card {
	return &Card{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    status,
		Order:     order,
		CreatedAt: time.UnixMilli(1700000000000).UTC(),
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.Equal(t, "test-board", client.BoardID())
	})

	t.Run("rejects empty board id", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "board id cannot be empty")
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := NewClientFromURL("not-a-url://", "b")
		assert.Error(t, err)
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestSaveAndGetCard(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	card := newCard("Write docs", ColumnInProgress, 2)
	card.Description = "user guide"
	require.NoError(t, client.SaveCards(ctx, card))

	assert.True(t, mr.Exists(CardKey("test-board", card.ID)))

	got, err := client.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card, got)
}

func TestSaveCardsRejectsInvalid(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	good := newCard("ok", ColumnTodo, 0)
	bad := newCard("bad", ColumnID("archived"), 0)

	err := client.SaveCards(ctx, good, bad)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.False(t, mr.Exists(CardKey("test-board", good.ID)), "nothing written when a card is invalid")
}

func TestGetCardNotFound(t *testing.T) {
	client, _ := setupTestClient(t)

	_, err := client.GetCard(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestLoadCards(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("empty board", func(t *testing.T) {
		cards, err := client.LoadCards(ctx)
		require.NoError(t, err)
		assert.Empty(t, cards)
	})

	a := newCard("a", ColumnTodo, 0)
	b := newCard("b", ColumnDone, 0)
	require.NoError(t, client.SaveCards(ctx, a, b))

	t.Run("returns all cards", func(t *testing.T) {
		cards, err := client.LoadCards(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []*Card{a, b}, cards)
	})

	t.Run("skips dangling index entries", func(t *testing.T) {
		mr.Del(CardKey("test-board", b.ID))
		cards, err := client.LoadCards(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*Card{a}, cards)
	})
}

func TestDeleteCard(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	card := newCard("gone", ColumnTodo, 0)
	require.NoError(t, client.SaveCards(ctx, card))
	require.NoError(t, client.DeleteCard(ctx, card.ID))

	assert.False(t, mr.Exists(CardKey("test-board", card.ID)))
	members, err := mr.SMembers(CardIndexKey("test-board"))
	if err == nil {
		assert.NotContains(t, members, card.ID)
	}

	t.Run("missing card is not an error", func(t *testing.T) {
		assert.NoError(t, client.DeleteCard(ctx, "never-existed"))
	})
}

func TestSubscribeEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	card := newCard("live", ColumnTodo, 0)
	published := CardCreated(card)
	published.Node = "node-a"
	require.NoError(t, client.PublishEvent(ctx, published))

	select {
	case got := <-sub.Events():
		assert.Equal(t, EventCardCreated, got.Type)
		assert.Equal(t, "node-a", got.Node)
		assert.Equal(t, card.ID, got.Card.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeEventsReportsMalformedPayload(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(EventsChannel("test-board"), "{not json")

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to unmarshal board event")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t)

	sub, err := client.SubscribeEvents(context.Background())
	require.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	// events channel is closed by the pump goroutine
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}
