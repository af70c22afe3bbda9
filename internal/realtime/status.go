// Package realtime carries board events between clients over websockets.
//
// The client side is Transport: one connection per board with the
// idle -> connecting -> connected -> disconnected state machine and
// unlimited automatic reconnects with bounded exponential backoff.
//
// The server side is Hub: one room per board. Card events received from a
// connection are relayed to the other connections of the same room and,
// when Redis fan-out is attached, to the rooms of the other server nodes.
package realtime

import (
	"errors"
	"time"
)

// Status is the state of a client connection.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// ErrNotConnected is returned by Emit while the transport is not connected.
var ErrNotConnected = errors.New("realtime transport not connected")

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// pingPeriod is how often the hub pings each connection.
	pingPeriod = 25 * time.Second

	// pongWait is how long either side waits for traffic before giving up.
	pongWait = 60 * time.Second

	// maxMessageSize bounds inbound websocket messages.
	maxMessageSize = 64 * 1024

	// sendBuffer is the per-connection outbound queue length on the hub.
	sendBuffer = 64
)
