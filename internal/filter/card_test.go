package filter

import (
	"testing"
	"time"

	"github.com/dyluth/kanban/internal/cardstore"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	card := &board.Card{
		ID:        "c1",
		Title:     "Accessibility review",
		Status:    board.ColumnTodo,
		CreatedAt: time.Date(2025, 2, 4, 14, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"no filters", Criteria{}, true},
		{"column match", Criteria{Column: board.ColumnTodo}, true},
		{"column mismatch", Criteria{Column: board.ColumnDone}, false},
		{"glob is case-insensitive", Criteria{TitleGlob: "access*"}, true},
		{"glob mismatch", Criteria{TitleGlob: "*deploy*"}, false},
		{"bad glob never matches", Criteria{TitleGlob: "["}, false},
		{"since before", Criteria{Since: card.CreatedAt.Add(-time.Hour)}, true},
		{"since after", Criteria{Since: card.CreatedAt.Add(time.Hour)}, false},
		{"all together", Criteria{Column: board.ColumnTodo, TitleGlob: "*review", Since: card.CreatedAt}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(card))
		})
	}
}

func TestColumns(t *testing.T) {
	columns := cardstore.New(cardstore.WithCards(cardstore.DemoCards())).Columns()

	all := (&Criteria{}).Columns(columns)
	assert.Equal(t, columns, all)

	todo := (&Criteria{Column: board.ColumnTodo}).Columns(columns)
	require.Len(t, todo, 1)
	assert.Len(t, todo[0].Cards, 3)

	glob := (&Criteria{TitleGlob: "*r*e*"}).Columns(columns)
	require.Len(t, glob, 3)
	for _, col := range glob {
		for _, c := range col.Cards {
			assert.Equal(t, col.ID, c.Status)
		}
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseSince("90m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-90*time.Minute), got)

	got, err = ParseSince("2025-02-01T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseSince("yesterday", now)
	assert.Error(t, err)
	_, err = ParseSince("-1h", now)
	assert.Error(t, err)
}
