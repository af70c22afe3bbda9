package board

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultBoardID identifies the single board served by this system.
const DefaultBoardID = "default"

// DefaultBoardName is the display name of the default board.
const DefaultBoardName = "Realtime Kanban"

var (
	// ErrNotFound is returned when a card or board id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidColumn is returned for a status outside the closed column set.
	ErrInvalidColumn = errors.New("invalid column")

	// ErrEmptyTitle is returned when a card title is empty after trimming.
	ErrEmptyTitle = errors.New("title is required")
)

// Card is a single item on the board.
// Status names the column the card sits in and Order is its zero-based
// position within that column.
type Card struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      ColumnID  `json:"status"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks that the card has an id, a non-blank title and a known column.
func (c *Card) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("card id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if err := c.Status.Validate(); err != nil {
		return err
	}
	if c.Order < 0 {
		return fmt.Errorf("order must be >= 0, got %d", c.Order)
	}
	return nil
}

// Clone returns a value copy of the card.
func (c *Card) Clone() *Card {
	cp := *c
	return &cp
}

// ColumnID names one of the fixed workflow columns. It doubles as a card's status.
type ColumnID string

const (
	// ColumnTodo holds cards that have not been started.
	ColumnTodo ColumnID = "todo"

	// ColumnInProgress holds cards being worked on.
	ColumnInProgress ColumnID = "in_progress"

	// ColumnDone holds finished cards.
	ColumnDone ColumnID = "done"
)

// Columns lists every column in display order.
var Columns = []ColumnID{ColumnTodo, ColumnInProgress, ColumnDone}

// Validate checks that the column is one of the defined columns.
func (c ColumnID) Validate() error {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be one of: todo, in_progress, done)", ErrInvalidColumn, string(c))
	}
}

// Title returns the display title of the column.
func (c ColumnID) Title() string {
	switch c {
	case ColumnTodo:
		return "Todo"
	case ColumnInProgress:
		return "In Progress"
	case ColumnDone:
		return "Done"
	default:
		return string(c)
	}
}

// ParseColumn converts a user supplied string into a ColumnID.
// Accepts the canonical id or the display title, case-insensitively.
func ParseColumn(s string) (ColumnID, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, col := range Columns {
		if norm == string(col) || norm == strings.ToLower(col.Title()) {
			return col, nil
		}
	}
	switch norm {
	case "in-progress", "inprogress", "doing":
		return ColumnInProgress, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColumn, s)
}

// Board is the metadata of a board. Its columns are static.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultBoard returns the metadata of the board served by this system.
func DefaultBoard() Board {
	return Board{ID: DefaultBoardID, Name: DefaultBoardName}
}

// ColumnDefinition describes a column without its cards.
type ColumnDefinition struct {
	ID      ColumnID `json:"id"`
	BoardID string   `json:"boardId"`
	Title   string   `json:"title"`
}

// ColumnDefinitions returns the static column set of a board.
func ColumnDefinitions(boardID string) []ColumnDefinition {
	defs := make([]ColumnDefinition, 0, len(Columns))
	for _, col := range Columns {
		defs = append(defs, ColumnDefinition{ID: col, BoardID: boardID, Title: col.Title()})
	}
	return defs
}

// Column is a read view of one column with its cards sorted by Order.
type Column struct {
	ID    ColumnID `json:"id"`
	Title string   `json:"title"`
	Cards []*Card  `json:"cards"`
}

// BoardView is the full board listing returned by the CRUD surface.
type BoardView struct {
	Board   Board    `json:"board"`
	Columns []Column `json:"columns"`
	Cards   []*Card  `json:"cards"`
}

// CardInput is the payload for creating a card.
// An empty or unknown Status defaults to todo on the server.
type CardInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      ColumnID `json:"status,omitempty"`
}

// Validate checks that the title is non-blank after trimming.
func (in CardInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// CardPatch is a partial card update. Nil fields are left unchanged.
type CardPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *ColumnID `json:"status,omitempty"`
	Order       *int      `json:"order,omitempty"`
}

// Validate rejects a blank title and an unknown status when present.
func (p CardPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Status != nil {
		if err := p.Status.Validate(); err != nil {
			return err
		}
	}
	if p.Order != nil && *p.Order < 0 {
		return fmt.Errorf("order must be >= 0, got %d", *p.Order)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Order == nil
}

// Merge returns p with the fields of other applied on top.
func (p CardPatch) Merge(other CardPatch) CardPatch {
	if other.Title != nil {
		p.Title = other.Title
	}
	if other.Description != nil {
		p.Description = other.Description
	}
	if other.Status != nil {
		p.Status = other.Status
	}
	if other.Order != nil {
		p.Order = other.Order
	}
	return p
}

// String returns a pointer to s. Helper for building patches.
func String(s string) *string { return &s }

// ColumnPtr returns a pointer to c. Helper for building patches.
func ColumnPtr(c ColumnID) *ColumnID { return &c }

// Int returns a pointer to n. Helper for building patches.
func Int(n int) *int { return &n }
