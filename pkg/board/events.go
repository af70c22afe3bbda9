package board

import (
	"encoding/json"
	"fmt"
)

// EventType names a realtime notification.
type EventType string

const (
	// EventCardCreated carries the authoritative card after a create.
	EventCardCreated EventType = "card:created"

	// EventCardUpdated carries the authoritative card after an update.
	EventCardUpdated EventType = "card:updated"

	// EventCardDeleted carries the id of a deleted card.
	EventCardDeleted EventType = "card:deleted"

	// EventCardMoved carries a card id and its new column and index.
	EventCardMoved EventType = "card:moved"

	// EventUserJoined announces a connection joining the board room.
	EventUserJoined EventType = "user:joined"

	// EventUserLeft announces a connection leaving the board room.
	EventUserLeft EventType = "user:left"

	// EventSessionWelcome tells a freshly connected client its own connection id.
	EventSessionWelcome EventType = "session:welcome"
)

// Validate checks that the event type is known.
func (t EventType) Validate() error {
	switch t {
	case EventCardCreated, EventCardUpdated, EventCardDeleted, EventCardMoved,
		EventUserJoined, EventUserLeft, EventSessionWelcome:
		return nil
	default:
		return fmt.Errorf("invalid event type: %q", string(t))
	}
}

// IsCardEvent reports whether the event describes a card change.
func (t EventType) IsCardEvent() bool {
	switch t {
	case EventCardCreated, EventCardUpdated, EventCardDeleted, EventCardMoved:
		return true
	}
	return false
}

// Event is the envelope exchanged on the realtime channel.
// Only the fields relevant to Type are populated.
type Event struct {
	Type    EventType `json:"type"`
	BoardID string    `json:"boardId,omitempty"`

	// Origin is the connection id of the sender, stamped by the server.
	Origin string `json:"origin,omitempty"`

	// Node is the server node that first received the event. Used to skip
	// events a node published to Redis itself.
	Node string `json:"node,omitempty"`

	Card           *Card    `json:"card,omitempty"`
	CardID         string   `json:"cardId,omitempty"`
	TargetColumnID ColumnID `json:"targetColumnId,omitempty"`
	NewOrder       int      `json:"newOrder"`
	ConnectionID   string   `json:"connectionId,omitempty"`
}

// Validate checks that the payload required by the event type is present.
func (e *Event) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}
	switch e.Type {
	case EventCardCreated, EventCardUpdated:
		if e.Card == nil {
			return fmt.Errorf("%s event requires a card", e.Type)
		}
		return e.Card.Validate()
	case EventCardDeleted:
		if e.CardID == "" {
			return fmt.Errorf("%s event requires a cardId", e.Type)
		}
	case EventCardMoved:
		if e.CardID == "" {
			return fmt.Errorf("%s event requires a cardId", e.Type)
		}
		if err := e.TargetColumnID.Validate(); err != nil {
			return err
		}
		if e.NewOrder < 0 {
			return fmt.Errorf("newOrder must be >= 0, got %d", e.NewOrder)
		}
	case EventUserJoined, EventUserLeft, EventSessionWelcome:
		if e.ConnectionID == "" {
			return fmt.Errorf("%s event requires a connectionId", e.Type)
		}
	}
	return nil
}

// SubjectID returns the card id for card events and the connection id for
// presence events.
func (e *Event) SubjectID() string {
	switch e.Type {
	case EventCardCreated, EventCardUpdated:
		if e.Card != nil {
			return e.Card.ID
		}
	case EventCardDeleted, EventCardMoved:
		return e.CardID
	}
	return e.ConnectionID
}

// CardCreated builds a created notification.
func CardCreated(card *Card) *Event {
	return &Event{Type: EventCardCreated, Card: card.Clone()}
}

// CardUpdated builds an updated notification.
func CardUpdated(card *Card) *Event {
	return &Event{Type: EventCardUpdated, Card: card.Clone()}
}

// CardDeleted builds a deleted notification.
func CardDeleted(cardID string) *Event {
	return &Event{Type: EventCardDeleted, CardID: cardID}
}

// CardMoved builds a moved notification.
func CardMoved(cardID string, target ColumnID, newOrder int) *Event {
	return &Event{Type: EventCardMoved, CardID: cardID, TargetColumnID: target, NewOrder: newOrder}
}

// UserJoined builds a presence join notification.
func UserJoined(connectionID string) *Event {
	return &Event{Type: EventUserJoined, ConnectionID: connectionID}
}

// UserLeft builds a presence leave notification.
func UserLeft(connectionID string) *Event {
	return &Event{Type: EventUserLeft, ConnectionID: connectionID}
}

// SessionWelcome builds the greeting sent to a newly connected client.
func SessionWelcome(connectionID string) *Event {
	return &Event{Type: EventSessionWelcome, ConnectionID: connectionID}
}

// EncodeEvent marshals an event to its wire form.
func EncodeEvent(e *Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// DecodeEvent unmarshals and validates an event from its wire form.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return &e, nil
}
