package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by board id so that
// several boards can share one Redis server.
//
// Key pattern: kanban:{board_id}:{entity}:{id}
// Channel pattern: kanban:{board_id}:events

// CardKey returns the Redis key for a card hash.
// Pattern: kanban:{board_id}:card:{card_id}
func CardKey(boardID, cardID string) string {
	return fmt.Sprintf("kanban:%s:card:%s", boardID, cardID)
}

// CardIndexKey returns the Redis key for the set of card ids on a board.
// Pattern: kanban:{board_id}:cards
func CardIndexKey(boardID string) string {
	return fmt.Sprintf("kanban:%s:cards", boardID)
}

// EventsChannel returns the Pub/Sub channel carrying realtime events for a board.
// Pattern: kanban:{board_id}:events
func EventsChannel(boardID string) string {
	return fmt.Sprintf("kanban:%s:events", boardID)
}

// RoomName returns the websocket room name for a board.
// Pattern: board:{board_id}
func RoomName(boardID string) string {
	return fmt.Sprintf("board:%s", boardID)
}
