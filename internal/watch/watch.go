// Package watch renders the realtime event stream for the CLI.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/kanban/pkg/board"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable output with timestamps and emojis.
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON.
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown format: %s", s)
}

type formatter interface {
	Format(ev *board.Event, at time.Time) error
}

func newFormatter(format OutputFormat, w io.Writer) formatter {
	if format == OutputFormatJSON {
		return &jsonFormatter{enc: json.NewEncoder(w)}
	}
	return &defaultFormatter{writer: w}
}

// Stream writes every event from events until the channel closes or ctx is
// cancelled. A nil now uses time.Now.
func Stream(ctx context.Context, events <-chan *board.Event, format OutputFormat, w io.Writer, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	f := newFormatter(format, w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := f.Format(ev, now()); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) Format(ev *board.Event, at time.Time) error {
	_, err := fmt.Fprintf(f.writer, "[%s] %s\n", at.Format("15:04:05"), describe(ev))
	return err
}

func describe(ev *board.Event) string {
	switch ev.Type {
	case board.EventCardCreated:
		return fmt.Sprintf("✨ Card Created: %q in %s, id=%s", ev.Card.Title, ev.Card.Status.Title(), shortID(ev.Card.ID))
	case board.EventCardUpdated:
		return fmt.Sprintf("✏️  Card Updated: %q in %s, id=%s", ev.Card.Title, ev.Card.Status.Title(), shortID(ev.Card.ID))
	case board.EventCardDeleted:
		return fmt.Sprintf("🗑️  Card Deleted: id=%s", shortID(ev.CardID))
	case board.EventCardMoved:
		return fmt.Sprintf("➡️  Card Moved: id=%s to %s at position %d", shortID(ev.CardID), ev.TargetColumnID.Title(), ev.NewOrder)
	case board.EventUserJoined:
		return fmt.Sprintf("👋 User Joined: %s", ev.ConnectionID)
	case board.EventUserLeft:
		return fmt.Sprintf("🚪 User Left: %s", ev.ConnectionID)
	case board.EventSessionWelcome:
		return fmt.Sprintf("🔗 Connected as %s", ev.ConnectionID)
	default:
		return fmt.Sprintf("❓ Unknown event: %s", ev.Type)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type jsonFormatter struct {
	enc *json.Encoder
}

type jsonLine struct {
	Time time.Time `json:"time"`
	*board.Event
}

func (f *jsonFormatter) Format(ev *board.Event, at time.Time) error {
	return f.enc.Encode(jsonLine{Time: at.UTC(), Event: ev})
}
