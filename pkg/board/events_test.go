package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	ev := CardMoved("c1", ColumnDone, 3)
	ev.Origin = "conn-1"

	data, err := EncodeEvent(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"card:moved"`)
	assert.Contains(t, string(data), `"targetColumnId":"done"`)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeEventRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", `{`},
		{"unknown type", `{"type":"card:archived"}`},
		{"created without card", `{"type":"card:created"}`},
		{"deleted without id", `{"type":"card:deleted"}`},
		{"moved to bad column", `{"type":"card:moved","cardId":"c","targetColumnId":"x"}`},
		{"moved to negative index", `{"type":"card:moved","cardId":"c","targetColumnId":"todo","newOrder":-1}`},
		{"join without connection", `{"type":"user:joined"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestEventSubjectID(t *testing.T) {
	assert.Equal(t, "c1", CardCreated(&Card{ID: "c1"}).SubjectID())
	assert.Equal(t, "c2", CardDeleted("c2").SubjectID())
	assert.Equal(t, "c3", CardMoved("c3", ColumnTodo, 0).SubjectID())
	assert.Equal(t, "u1", UserJoined("u1").SubjectID())
}

func TestCardEventsCopyTheCard(t *testing.T) {
	card := &Card{ID: "c1", Title: "before"}
	ev := CardUpdated(card)
	card.Title = "after"
	assert.Equal(t, "before", ev.Card.Title)
}

func TestIsCardEvent(t *testing.T) {
	assert.True(t, EventCardDeleted.IsCardEvent())
	assert.False(t, EventUserLeft.IsCardEvent())
	assert.False(t, EventSessionWelcome.IsCardEvent())
}
