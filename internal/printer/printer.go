// Package printer writes the CLI's human-facing output: coloured status
// lines, column headings, presence swatches and formatted errors.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/kanban/internal/presence"
	"github.com/dyluth/kanban/internal/realtime"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/fatih/color"
)

func init() {
	// Force colour even without a TTY; NO_COLOR turns it off
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)

	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Used by tests.
func SetOutput(stdout, stderr io.Writer) {
	out = stdout
	errOut = stderr
}

// Success prints a green message with a checkmark.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(out, msg)
}

// Info prints a plain message.
func Info(format string, a ...any) {
	fmt.Fprintf(out, format, a...)
}

// Warning prints a yellow message with a warning sign.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(errOut, msg)
}

// Step prints a cyan progress line.
func Step(format string, a ...any) {
	cyan.Fprintf(out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a titled error with an explanation and suggestions to stderr
// and returns an error carrying just the title, for cobra.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error plus key/value details, printed in key order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(errOut, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(errOut, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(errOut)
		for _, k := range keys {
			fmt.Fprintf(errOut, "  %s: %s\n", k, context[k])
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(errOut, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(errOut, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(errOut, "  %d. %s\n", i+1, s)
		}
	}

	return fmt.Errorf("%s", title)
}

// ColumnHeading renders a column title with its card count.
func ColumnHeading(col board.ColumnID, count int) string {
	c := columnColor(col)
	return c.Sprintf("%s (%d)", col.Title(), count)
}

func columnColor(col board.ColumnID) *color.Color {
	switch col {
	case board.ColumnTodo:
		return color.New(color.FgBlue, color.Bold)
	case board.ColumnInProgress:
		return color.New(color.FgYellow, color.Bold)
	case board.ColumnDone:
		return color.New(color.FgGreen, color.Bold)
	}
	return bold
}

// Status renders a connection status word.
func Status(st realtime.Status) string {
	switch st {
	case realtime.StatusConnected:
		return green.Sprint(string(st))
	case realtime.StatusConnecting:
		return yellow.Sprint(string(st))
	case realtime.StatusDisconnected:
		return red.Sprint(string(st))
	}
	return string(st)
}

// Swatch renders a presence entry as a coloured dot plus a short id.
func Swatch(e presence.Entry) string {
	id := e.ConnectionID
	if len(id) > 8 {
		id = id[:8]
	}
	return paletteColor(e.Color).Sprint("●") + " " + id
}

// paletteColor maps a presence palette colour to the nearest terminal colour.
func paletteColor(hex string) *color.Color {
	switch strings.ToLower(hex) {
	case "#ef4444", "#ec4899":
		return color.New(color.FgRed)
	case "#f97316", "#eab308":
		return color.New(color.FgYellow)
	case "#22c55e":
		return color.New(color.FgGreen)
	case "#14b8a6":
		return color.New(color.FgCyan)
	case "#3b82f6":
		return color.New(color.FgBlue)
	case "#8b5cf6":
		return color.New(color.FgMagenta)
	}
	return color.New(color.FgWhite)
}
