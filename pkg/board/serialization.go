package board

import (
	"fmt"
	"strconv"
	"time"
)

// Serialization helpers for converting between Card and Redis hashes.
//
// Redis stores data as string-to-string maps. CreatedAt is kept as Unix
// milliseconds so that hashes stay readable from redis-cli.

// CardToHash converts a Card to a Redis hash.
func CardToHash(c *Card) map[string]interface{} {
	return map[string]interface{}{
		"id":            c.ID,
		"title":         c.Title,
		"description":   c.Description,
		"status":        string(c.Status),
		"order":         c.Order,
		"created_at_ms": c.CreatedAt.UnixMilli(),
	}
}

// HashToCard converts a Redis hash to a Card and validates it.
func HashToCard(hash map[string]string) (*Card, error) {
	order, err := strconv.Atoi(hash["order"])
	if err != nil {
		return nil, fmt.Errorf("invalid order field: %w", err)
	}

	var createdAt time.Time
	if raw := hash["created_at_ms"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
		}
		createdAt = time.UnixMilli(ms).UTC()
	}

	card := &Card{
		ID:          hash["id"],
		Title:       hash["title"],
		Description: hash["description"],
		Status:      ColumnID(hash["status"]),
		Order:       order,
		CreatedAt:   createdAt,
	}

	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid card: %w", err)
	}

	return card, nil
}
