// Package resolver turns a user-typed card id or id prefix into a full id.
package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/kanban/pkg/board"
)

// maxListed caps the matches shown for an ambiguous prefix.
const maxListed = 10

// ResolveCardID resolves shortID against cards. An exact id match always
// wins; otherwise the prefix must match exactly one card.
func ResolveCardID(cards []*board.Card, shortID string) (string, error) {
	shortID = strings.TrimSpace(shortID)
	if shortID == "" {
		return "", fmt.Errorf("card id cannot be empty")
	}

	var matches []string
	for _, c := range cards {
		if c.ID == shortID {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, shortID) {
			matches = append(matches, c.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no card matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no cards found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several cards matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d cards", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous short ID '%s' matches %d cards:\n", err.ShortID, len(err.Matches))

	shown := min(len(err.Matches), maxListed)
	for _, id := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > maxListed {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-maxListed)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the card.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
