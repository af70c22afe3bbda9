package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides board-scoped Redis operations.
// All keys and channels are namespaced with the board id.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb     *redis.Client
	boardID string
}

// NewClient creates a new Redis client for the specified board.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - boardID: board identifier (must not be empty)
//
// Returns an error if boardID is empty.
func NewClient(redisOpts *redis.Options, boardID string) (*Client, error) {
	if boardID == "" {
		return nil, fmt.Errorf("board id cannot be empty")
	}

	return &Client{
		rdb:     redis.NewClient(redisOpts),
		boardID: boardID,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client for the board.
func NewClientFromURL(redisURL, boardID string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewClient(opts, boardID)
}

// BoardID returns the board this client is scoped to.
func (c *Client) BoardID() string {
	return c.boardID
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveCards writes cards to Redis in one pipeline.
// Each card is validated first; nothing is written if any card is invalid.
// Saving a card that already exists overwrites every field.
func (c *Client) SaveCards(ctx context.Context, cards ...*Card) error {
	if len(cards) == 0 {
		return nil
	}

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("invalid card %s: %w", card.ID, err)
		}
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, card := range cards {
			pipe.HSet(ctx, CardKey(c.boardID, card.ID), CardToHash(card))
			pipe.SAdd(ctx, CardIndexKey(c.boardID), card.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write cards to Redis: %w", err)
	}

	return nil
}

// DeleteCard removes a card hash and its index entry.
// Deleting a card that does not exist is not an error.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, CardKey(c.boardID, cardID))
		pipe.SRem(ctx, CardIndexKey(c.boardID), cardID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete card from Redis: %w", err)
	}
	return nil
}

// GetCard retrieves a card by ID.
// Returns (nil, redis.Nil) if the card doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	hashData, err := c.rdb.HGetAll(ctx, CardKey(c.boardID, cardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read card from Redis: %w", err)
	}

	// HGetAll returns an empty map for missing keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	card, err := HashToCard(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize card: %w", err)
	}

	return card, nil
}

// LoadCards returns every card stored for the board.
// Index entries whose hash has disappeared are skipped.
func (c *Client) LoadCards(ctx context.Context) ([]*Card, error) {
	ids, err := c.rdb.SMembers(ctx, CardIndexKey(c.boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read card index: %w", err)
	}
	if len(ids) == 0 {
		return []*Card{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, CardKey(c.boardID, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cards from Redis: %w", err)
	}

	cards := make([]*Card, 0, len(ids))
	for i, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		card, err := HashToCard(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize card %s: %w", ids[i], err)
		}
		cards = append(cards, card)
	}

	return cards, nil
}

// PublishEvent publishes an event on the board's events channel.
func (c *Client) PublishEvent(ctx context.Context, e *Event) error {
	data, err := EncodeEvent(e)
	if err != nil {
		return err
	}

	if err := c.rdb.Publish(ctx, EventsChannel(c.boardID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to board events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of board events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Malformed messages are reported here and skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to realtime events for this board.
// The subscription is confirmed by Redis before this returns, so events
// published afterwards are guaranteed to be delivered.
//
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once; a slow subscriber may miss events.
func (c *Client) SubscribeEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EventsChannel(c.boardID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to board events: %w", err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal board event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil)
// or ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrNotFound)
}
