// Package filter selects cards for CLI listings.
package filter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/kanban/pkg/board"
)

// Criteria defines filtering criteria for cards.
// All filters are ANDed together; zero values match everything.
type Criteria struct {
	Column    board.ColumnID // Exact column, empty = no filter
	TitleGlob string         // Case-insensitive glob on the title, empty = no filter
	Since     time.Time      // Created at or after, zero = no filter
}

// Matches returns true if the card matches all filter criteria.
func (c *Criteria) Matches(card *board.Card) bool {
	if c.Column != "" && card.Status != c.Column {
		return false
	}

	if c.TitleGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.TitleGlob), strings.ToLower(card.Title))
		if err != nil || !matched {
			return false
		}
	}

	if !c.Since.IsZero() && card.CreatedAt.Before(c.Since) {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.Column != "" || c.TitleGlob != "" || !c.Since.IsZero()
}

// Columns applies the criteria to each column's cards, keeping column order
// and card order. Cards keep their real order values.
func (c *Criteria) Columns(columns []board.Column) []board.Column {
	if !c.HasFilters() {
		return columns
	}
	out := make([]board.Column, 0, len(columns))
	for _, col := range columns {
		if c.Column != "" && col.ID != c.Column {
			continue
		}
		kept := board.Column{ID: col.ID, Title: col.Title}
		for _, card := range col.Cards {
			if c.Matches(card) {
				kept.Cards = append(kept.Cards, card)
			}
		}
		out = append(out, kept)
	}
	return out
}

// ParseSince parses a --since value: a duration back from now ("90m",
// "2h") or an RFC3339 timestamp. Empty means no bound.
func ParseSince(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid time value: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", value)
}
