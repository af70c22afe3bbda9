package cardstore

import (
	"time"

	"github.com/dyluth/kanban/pkg/board"
)

// DemoCards returns the sample cards a fresh server starts with when demo
// seeding is enabled.
func DemoCards() []*board.Card {
	at := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
	return []*board.Card{
		{ID: "1", Title: "Build the board UI", Description: "Board, column, card and card form components", Status: board.ColumnDone, Order: 0, CreatedAt: at("2025-02-01T10:00:00Z")},
		{ID: "2", Title: "Wire up drag and drop", Description: "Move cards between and within columns", Status: board.ColumnInProgress, Order: 1, CreatedAt: at("2025-02-02T11:00:00Z")},
		{ID: "3", Title: "Prepare realtime collaboration", Description: "Design the websocket event flow", Status: board.ColumnTodo, Order: 0, CreatedAt: at("2025-02-03T09:00:00Z")},
		{ID: "4", Title: "Accessibility review", Description: "ARIA labels and keyboard navigation", Status: board.ColumnTodo, Order: 1, CreatedAt: at("2025-02-04T14:00:00Z")},
		{ID: "5", Title: "Responsive layout testing", Description: "Mobile, tablet and desktop breakpoints", Status: board.ColumnInProgress, Order: 0, CreatedAt: at("2025-02-05T08:00:00Z")},
		{ID: "6", Title: "State management migration", Description: "Move client state into a single store", Status: board.ColumnTodo, Order: 2, CreatedAt: at("2025-02-06T16:00:00Z")},
	}
}
