package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnIDValidate(t *testing.T) {
	for _, col := range Columns {
		assert.NoError(t, col.Validate(), col)
	}

	err := ColumnID("archived").Validate()
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.ErrorIs(t, ColumnID("").Validate(), ErrInvalidColumn)
}

func TestColumnTitles(t *testing.T) {
	assert.Equal(t, "Todo", ColumnTodo.Title())
	assert.Equal(t, "In Progress", ColumnInProgress.Title())
	assert.Equal(t, "Done", ColumnDone.Title())
}

func TestParseColumn(t *testing.T) {
	tests := []struct {
		in   string
		want ColumnID
	}{
		{"todo", ColumnTodo},
		{" Done ", ColumnDone},
		{"In Progress", ColumnInProgress},
		{"in-progress", ColumnInProgress},
		{"in_progress", ColumnInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColumn(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseColumn("backlog")
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestCardValidate(t *testing.T) {
	valid := Card{ID: "c1", Title: "t", Status: ColumnTodo}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Card)
		errMsg string
	}{
		{"missing id", func(c *Card) { c.ID = "" }, "card id is required"},
		{"blank title", func(c *Card) { c.Title = "   " }, "title is required"},
		{"bad status", func(c *Card) { c.Status = "nope" }, "invalid column"},
		{"negative order", func(c *Card) { c.Order = -1 }, "order must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCardCloneIsIndependent(t *testing.T) {
	orig := &Card{ID: "c1", Title: "before", Status: ColumnTodo}
	cp := orig.Clone()
	cp.Title = "after"
	assert.Equal(t, "before", orig.Title)
}

func TestCardPatch(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, CardPatch{}.Validate())
		assert.ErrorIs(t, CardPatch{Title: String(" ")}.Validate(), ErrEmptyTitle)
		assert.ErrorIs(t, CardPatch{Status: ColumnPtr("x")}.Validate(), ErrInvalidColumn)
		assert.Error(t, CardPatch{Order: Int(-2)}.Validate())
	})

	t.Run("merge keeps latest fields", func(t *testing.T) {
		p := CardPatch{Title: String("a"), Description: String("d")}
		merged := p.Merge(CardPatch{Title: String("b")})
		assert.Equal(t, "b", *merged.Title)
		assert.Equal(t, "d", *merged.Description)
		assert.Nil(t, merged.Status)
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, CardPatch{}.IsEmpty())
		assert.False(t, CardPatch{Order: Int(0)}.IsEmpty())
	})
}

func TestCardInputValidate(t *testing.T) {
	assert.NoError(t, CardInput{Title: "x"}.Validate())
	assert.ErrorIs(t, CardInput{Title: "\t"}.Validate(), ErrEmptyTitle)
}

func TestColumnDefinitions(t *testing.T) {
	defs := ColumnDefinitions("b1")
	require.Len(t, defs, 3)
	assert.Equal(t, ColumnDefinition{ID: ColumnInProgress, BoardID: "b1", Title: "In Progress"}, defs[1])
}
