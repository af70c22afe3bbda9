package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/kanban/internal/metrics"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Fanout relays events between server nodes. *board.Client satisfies it.
type Fanout interface {
	BoardID() string
	PublishEvent(ctx context.Context, e *board.Event) error
	SubscribeEvents(ctx context.Context) (*board.Subscription, error)
}

// HubConfig configures a Hub.
type HubConfig struct {
	// NodeID identifies this server node in fanned-out events.
	NodeID string

	// AllowedOrigin restricts the websocket Origin header. Empty or "*" allows any.
	AllowedOrigin string

	Logger  log.FieldLogger
	Metrics *metrics.Metrics
}

// Hub manages the board rooms of one server node.
type Hub struct {
	nodeID   string
	logger   log.FieldLogger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	rooms   map[string]map[*peer]struct{}
	fanouts map[string]Fanout
	closed  bool
}

// peer is one websocket connection on the hub.
type peer struct {
	id      string
	boardID string
	ws      *websocket.Conn
	send    chan []byte

	mu     sync.Mutex
	closed bool
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

// trySend queues data without blocking. Returns false if the queue is full.
// Sending to a closed peer is silently ignored.
func (p *peer) trySend(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return true
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// NewHub creates a hub with no rooms.
func NewHub(cfg HubConfig) *Hub {
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.New().String()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	origin := cfg.AllowedOrigin
	return &Hub{
		nodeID:  cfg.NodeID,
		logger:  cfg.Logger.WithFields(log.Fields{"component": "hub", "node_id": cfg.NodeID}),
		metrics: cfg.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return origin == "" || origin == "*" || r.Header.Get("Origin") == origin
			},
		},
		rooms:   make(map[string]map[*peer]struct{}),
		fanouts: make(map[string]Fanout),
	}
}

// NodeID returns this node's id.
func (h *Hub) NodeID() string { return h.nodeID }

// AttachFanout subscribes to the board's Redis channel and relays events
// published by other nodes into the local room. Events this node published
// itself are skipped. The relay stops when ctx is done.
func (h *Hub) AttachFanout(ctx context.Context, f Fanout) error {
	sub, err := f.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.fanouts[f.BoardID()] = f
	h.mu.Unlock()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-sub.Errors():
				if !ok {
					return
				}
				h.logger.WithError(err).Warn("Fan-out message dropped")
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if ev.Node == h.nodeID {
					continue
				}
				if err := ev.Validate(); err != nil || !ev.Type.IsCardEvent() {
					continue
				}
				h.deliver(f.BoardID(), ev, nil, "redis")
			}
		}
	}()
	return nil
}

// ServeHTTP upgrades the request and joins the board room named by the
// boardId query parameter (default board when absent).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	boardID := r.URL.Query().Get("boardId")
	if boardID == "" {
		boardID = board.DefaultBoardID
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	p := &peer{
		id:      uuid.New().String(),
		boardID: boardID,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
	}
	if !h.join(p) {
		ws.Close()
		return
	}

	go h.writePump(p)
	h.readPump(p)
}

// join registers p, greets it, tells it who is already present and
// announces it to the whole room.
func (h *Hub) join(p *peer) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	room, ok := h.rooms[p.boardID]
	if !ok {
		room = make(map[*peer]struct{})
		h.rooms[p.boardID] = room
	}
	existing := make([]string, 0, len(room))
	for other := range room {
		existing = append(existing, other.id)
	}
	room[p] = struct{}{}
	h.mu.Unlock()

	h.metrics.Connections.Inc()
	h.logger.WithFields(log.Fields{"connection_id": p.id, "room": board.RoomName(p.boardID)}).Info("Connection joined")

	h.sendTo(p, board.SessionWelcome(p.id))
	for _, id := range existing {
		h.sendTo(p, board.UserJoined(id))
	}
	h.deliver(p.boardID, board.UserJoined(p.id), nil, "local")
	return true
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	room, ok := h.rooms[p.boardID]
	if ok {
		if _, present := room[p]; !present {
			ok = false
		}
		delete(room, p)
		if len(room) == 0 {
			delete(h.rooms, p.boardID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	p.close()
	h.metrics.Connections.Dec()
	h.logger.WithFields(log.Fields{"connection_id": p.id, "room": board.RoomName(p.boardID)}).Info("Connection left")
	h.deliver(p.boardID, board.UserLeft(p.id), nil, "local")
}

func (h *Hub) readPump(p *peer) {
	defer func() {
		h.leave(p)
		p.ws.Close()
	}()

	p.ws.SetReadLimit(maxMessageSize)
	p.ws.SetReadDeadline(time.Now().Add(pongWait))
	p.ws.SetPongHandler(func(string) error {
		p.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).WithField("connection_id", p.id).Debug("Connection read failed")
			}
			return
		}
		p.ws.SetReadDeadline(time.Now().Add(pongWait))

		ev, err := board.DecodeEvent(data)
		if err != nil || !ev.Type.IsCardEvent() {
			h.metrics.EventsRejected.Inc()
			continue
		}
		ev.Origin = p.id
		ev.BoardID = p.boardID
		ev.Node = h.nodeID

		h.deliver(p.boardID, ev, p, "local")
		h.publish(p.boardID, ev)
	}
}

func (h *Hub) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-p.send:
			p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues ev for every peer of the room except exclude. A peer whose
// queue is full is disconnected.
func (h *Hub) deliver(boardID string, ev *board.Event, exclude *peer, source string) {
	data, err := board.EncodeEvent(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode event")
		return
	}

	h.mu.RLock()
	targets := make([]*peer, 0, len(h.rooms[boardID]))
	for p := range h.rooms[boardID] {
		if p != exclude {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	var slow []*peer
	for _, p := range targets {
		if !p.trySend(data) {
			slow = append(slow, p)
		}
	}
	if ev.Type.IsCardEvent() {
		h.metrics.EventsRelayed.WithLabelValues(string(ev.Type), source).Add(float64(len(targets) - len(slow)))
	}
	for _, p := range slow {
		h.logger.WithField("connection_id", p.id).Warn("Dropping slow connection")
		h.leave(p)
	}
}

func (h *Hub) sendTo(p *peer, ev *board.Event) {
	data, err := board.EncodeEvent(ev)
	if err != nil {
		return
	}
	p.trySend(data)
}

func (h *Hub) publish(boardID string, ev *board.Event) {
	h.mu.RLock()
	f, ok := h.fanouts[boardID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.PublishEvent(ctx, ev); err != nil {
		h.logger.WithError(err).WithField("event_type", ev.Type).Warn("Fan-out publish failed")
	}
}

// RoomSize returns the number of connections in a board room.
func (h *Hub) RoomSize(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[boardID])
}

// Close disconnects every connection and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*peer
	for _, room := range h.rooms {
		for p := range room {
			all = append(all, p)
		}
	}
	h.mu.Unlock()

	for _, p := range all {
		p.close()
	}
}
