// Package board provides type-safe Go definitions, realtime event envelopes and
// Redis schema patterns for the kanban board.
//
// # Overview
//
// A board is a fixed set of columns (todo, in_progress, done). Cards belong to
// exactly one column through their Status field, and carry an Order that is
// their zero-based position inside that column. Columns are derived groupings
// of cards, not a separate mutable collection.
//
// # Core Concepts
//
// Cards are the only mutable entity. Every column's Order values form the dense
// sequence 0..n-1; the cardstore package enforces this after each mutation.
//
// Events are the messages exchanged on the realtime channel. Card events carry
// the authoritative card (created, updated), its id (deleted) or its new
// position (moved). Presence events carry a connection id.
//
// # Redis Layout
//
// When the server runs with Redis, cards are stored as hashes and every board
// has its own Pub/Sub channel so that several server nodes can relay events to
// each other's websocket rooms.
//
//	kanban:{board_id}:card:{card_id}   hash of card fields
//	kanban:{board_id}:cards            set of card ids
//	kanban:{board_id}:events           Pub/Sub channel of Event JSON
//
// # Usage Example
//
//	import "github.com/dyluth/kanban/pkg/board"
//
//	client, err := board.NewClient(&redis.Options{Addr: "localhost:6379"}, board.DefaultBoardID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	card := &board.Card{ID: uuid.New().String(), Title: "Write docs", Status: board.ColumnTodo}
//	if err := client.SaveCards(ctx, card); err != nil {
//		log.Fatal(err)
//	}
package board
