// Package presence tracks which connections are on the board and assigns
// each one a stable display colour.
package presence

import (
	"sync"
	"unicode/utf16"
)

// Palette is the closed set of presence colours.
var Palette = []string{
	"#ef4444",
	"#f97316",
	"#eab308",
	"#22c55e",
	"#14b8a6",
	"#3b82f6",
	"#8b5cf6",
	"#ec4899",
}

// ColorFor maps an id to a palette colour. The hash folds UTF-16 code units
// as h = h*31 + unit with 32-bit wrap-around, so the same id always yields
// the same colour on every client.
func ColorFor(id string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(id)) {
		h = h*31 + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return Palette[abs%int64(len(Palette))]
}

// Entry is one connection present on the board.
type Entry struct {
	ConnectionID string `json:"connectionId"`
	Color        string `json:"color"`
}

// Roster is the set of connections present on the board plus this client's
// own connection id. It is safe for concurrent use.
type Roster struct {
	mu      sync.RWMutex
	entries []Entry
	self    string
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{}
}

// Add records a joined connection. Adding an id twice is a no-op.
func (r *Roster) Add(connectionID string) bool {
	if connectionID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.ConnectionID == connectionID {
			return false
		}
	}
	r.entries = append(r.entries, Entry{ConnectionID: connectionID, Color: ColorFor(connectionID)})
	return true
}

// Remove drops a connection that left.
func (r *Roster) Remove(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.ConnectionID == connectionID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear forgets every entry and this client's own id. Called on local disconnect.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.self = ""
}

// List returns the entries in join order.
func (r *Roster) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SetSelf records this client's own connection id.
func (r *Roster) SetSelf(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.self = connectionID
}

// Self returns this client's own connection id, or "" when disconnected.
func (r *Roster) Self() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.self
}

// Others returns every entry except this client's own.
func (r *Roster) Others() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.ConnectionID != r.self {
			out = append(out, e)
		}
	}
	return out
}
