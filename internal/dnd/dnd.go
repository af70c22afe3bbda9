// Package dnd converts drag-and-drop gestures into card move targets.
// Drop zones are either a card id or a column droppable id carrying the
// reserved "column-" prefix.
package dnd

import (
	"sort"
	"strings"

	"github.com/dyluth/kanban/pkg/board"
)

// ColumnDroppablePrefix marks a drop target as a whole column rather than a card.
const ColumnDroppablePrefix = "column-"

// Target is where a dragged card should go.
type Target struct {
	ColumnID board.ColumnID `json:"targetColumnId"`
	NewOrder int            `json:"newOrder"`
}

// DroppableForColumn returns the droppable id of a column's drop zone.
func DroppableForColumn(column board.ColumnID) string {
	return ColumnDroppablePrefix + string(column)
}

// ColumnFromDroppable extracts the column from a column droppable id.
// Returns false if id does not carry the column prefix.
func ColumnFromDroppable(id string) (board.ColumnID, bool) {
	if !strings.HasPrefix(id, ColumnDroppablePrefix) {
		return "", false
	}
	return board.ColumnID(strings.TrimPrefix(id, ColumnDroppablePrefix)), true
}

// Resolve computes the move target for dropping activeID on overID.
//
// Dropping on a column appends to that column. Dropping on a card inserts
// before it, at its index in the column's order-sorted sequence. Returns
// false if the dragged card or the card dropped on does not exist.
// Dropping a card on itself is not special-cased; see IsNoop.
func Resolve(cards []*board.Card, activeID, overID string) (Target, bool) {
	if find(cards, activeID) == nil {
		return Target{}, false
	}

	if col, ok := ColumnFromDroppable(overID); ok && col.Validate() == nil {
		return Target{ColumnID: col, NewOrder: len(inColumn(cards, col))}, true
	}

	over := find(cards, overID)
	if over == nil {
		return Target{}, false
	}

	sorted := inColumn(cards, over.Status)
	index := len(sorted)
	for i, c := range sorted {
		if c.ID == overID {
			index = i
			break
		}
	}
	return Target{ColumnID: over.Status, NewOrder: index}, true
}

// Placement converts a resolved target into the card's final index. Within
// one column a card dropped on a card below it must land just before that
// card, which is one index up once the card has left its old slot.
func Placement(cards []*board.Card, activeID string, target Target) Target {
	active := find(cards, activeID)
	if active == nil || active.Status != target.ColumnID {
		return target
	}
	if current := indexIn(cards, active); current >= 0 && current < target.NewOrder {
		target.NewOrder--
	}
	return target
}

// IsNoop reports whether dropping activeID on target would leave it where it
// is: dropped on itself, on its own successor, or on its own column when it
// is already last.
func IsNoop(cards []*board.Card, activeID string, target Target) bool {
	active := find(cards, activeID)
	if active == nil || active.Status != target.ColumnID {
		return false
	}

	current := indexIn(cards, active)
	final := Placement(cards, activeID, target).NewOrder
	if last := len(inColumn(cards, active.Status)) - 1; final > last {
		final = last
	}
	if final < 0 {
		final = 0
	}
	return final == current
}

func indexIn(cards []*board.Card, card *board.Card) int {
	for i, c := range inColumn(cards, card.Status) {
		if c.ID == card.ID {
			return i
		}
	}
	return -1
}

func find(cards []*board.Card, id string) *board.Card {
	for _, c := range cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func inColumn(cards []*board.Card, col board.ColumnID) []*board.Card {
	out := make([]*board.Card, 0, len(cards))
	for _, c := range cards {
		if c.Status == col {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
