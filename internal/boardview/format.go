// Package boardview renders a board's columns and cards for the CLI.
package boardview

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/pkg/board"
)

// OutputFormat selects how FormatBoard writes.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatTable, OutputFormatJSONL:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown format: %s", s)
}

// FormatBoard writes columns in the chosen format.
func FormatBoard(w io.Writer, b board.Board, columns []board.Column, format OutputFormat, now time.Time) error {
	if format == OutputFormatJSONL {
		var cards []*board.Card
		for _, col := range columns {
			cards = append(cards, col.Cards...)
		}
		return FormatJSONL(w, cards)
	}
	FormatTable(w, b, columns, now)
	return nil
}

// FormatTable writes one section per column with its cards in order.
// Returns the number of cards written.
func FormatTable(w io.Writer, b board.Board, columns []board.Column, now time.Time) int {
	fmt.Fprintf(w, "%s\n", b.Name)

	total := 0
	for _, col := range columns {
		fmt.Fprintf(w, "\n%s\n", printer.ColumnHeading(col.ID, len(col.Cards)))
		if len(col.Cards) == 0 {
			fmt.Fprintf(w, "  (empty)\n")
			continue
		}
		fmt.Fprintf(w, "  %-3s %-10s %-32s %-6s %s\n", "#", "ID", "TITLE", "AGE", "DESCRIPTION")
		for _, c := range col.Cards {
			fmt.Fprintf(w, "  %-3d %-10s %-32s %-6s %s\n",
				c.Order,
				formatID(c.ID),
				truncate(c.Title, 32),
				formatAge(c.CreatedAt, now),
				truncate(c.Description, 40),
			)
		}
		total += len(col.Cards)
	}

	noun := "card"
	if total != 1 {
		noun = "cards"
	}
	fmt.Fprintf(w, "\n%d %s\n", total, noun)
	return total
}

// FormatJSONL writes one compact JSON card per line, for piping to jq.
func FormatJSONL(w io.Writer, cards []*board.Card) error {
	for _, c := range cards {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal card to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatCardJSON writes a single card as indented JSON.
func FormatCardJSON(w io.Writer, card *board.Card) error {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal card to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID shortens uuid-style ids to 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// formatAge renders how long ago t was, e.g. 45s, 12m, 3h, 2d.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
