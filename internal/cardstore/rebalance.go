package cardstore

import (
	"sort"

	"github.com/dyluth/kanban/pkg/board"
)

// Rebalance renumbers the cards of one column to the dense sequence 0..n-1.
// Cards are stably sorted by their current Order, so ties keep their relative
// position in cards. Cards are mutated in place. Calling it twice is a no-op
// the second time.
func Rebalance(cards []*board.Card, column board.ColumnID) {
	inColumn := columnCards(cards, column)
	for i, c := range inColumn {
		c.Order = i
	}
}

// columnCards returns the cards of a column sorted by Order, stable on slice position.
func columnCards(cards []*board.Card, column board.ColumnID) []*board.Card {
	inColumn := make([]*board.Card, 0, len(cards))
	for _, c := range cards {
		if c.Status == column {
			inColumn = append(inColumn, c)
		}
	}
	sort.SliceStable(inColumn, func(i, j int) bool {
		return inColumn[i].Order < inColumn[j].Order
	})
	return inColumn
}

// IsDense reports whether the column's orders are exactly 0..n-1.
func IsDense(cards []*board.Card, column board.ColumnID) bool {
	seen := make(map[int]bool)
	n := 0
	for _, c := range cards {
		if c.Status != column {
			continue
		}
		n++
		if seen[c.Order] {
			return false
		}
		seen[c.Order] = true
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}
