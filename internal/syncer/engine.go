// Package syncer keeps one client's card store consistent with the server
// and with other clients. Local operations are applied optimistically,
// written through the CRUD API, rolled back from a value snapshot on
// failure, and broadcast on the realtime channel when committed. Inbound
// realtime events are applied to the store, with the client's own move
// echoes suppressed.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/kanban/internal/cardstore"
	"github.com/dyluth/kanban/internal/dnd"
	"github.com/dyluth/kanban/internal/presence"
	"github.com/dyluth/kanban/internal/ratelimit"
	"github.com/dyluth/kanban/internal/realtime"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CardAPI is the server's CRUD surface.
type CardAPI interface {
	GetBoard(ctx context.Context, boardID string) (*board.BoardView, error)
	CreateCard(ctx context.Context, input board.CardInput) (*board.Card, error)
	UpdateCard(ctx context.Context, id string, patch board.CardPatch) (*board.Card, error)
	DeleteCard(ctx context.Context, id string) error
}

// Emitter sends an event on the realtime channel.
type Emitter interface {
	Emit(e *board.Event) error
}

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	BoardID string

	// EmitInterval throttles broadcasts per card.
	EmitInterval time.Duration

	// EditDebounce delays draft edits until typing pauses.
	EditDebounce time.Duration

	// SelfMoveTTL bounds how long a pending self-move marker can suppress
	// an incoming move for the same card.
	SelfMoveTTL time.Duration

	Clock  ratelimit.Clock
	Logger log.FieldLogger

	// OnError receives failures of background operations (debounced edits,
	// resyncs).
	OnError func(error)
}

const (
	DefaultEmitInterval = 150 * time.Millisecond
	DefaultEditDebounce = 300 * time.Millisecond
	DefaultSelfMoveTTL  = 5 * time.Second
)

// Engine is the realtime sync engine for one client.
type Engine struct {
	boardID string
	store   *cardstore.Store
	api     CardAPI
	emitter Emitter
	ui      *UIState
	roster  *presence.Roster

	clock   ratelimit.Clock
	ttl     time.Duration
	logger  log.FieldLogger
	onError func(error)

	broadcasts  *ratelimit.ThrottleGroup[*board.Event]
	broadcastMu sync.Mutex
	drafts      *ratelimit.DebounceGroup[board.CardPatch]

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	pendingMoves map[string]time.Time
	inflight     map[string]int
	draftPatches map[string]board.CardPatch
	closed       bool

	newTempID func() string
}

// New creates an engine over store. emitter may be nil for an offline client.
func New(cfg Config, store *cardstore.Store, api CardAPI, emitter Emitter) *Engine {
	if cfg.BoardID == "" {
		cfg.BoardID = board.DefaultBoardID
	}
	if cfg.EmitInterval <= 0 {
		cfg.EmitInterval = DefaultEmitInterval
	}
	if cfg.EditDebounce <= 0 {
		cfg.EditDebounce = DefaultEditDebounce
	}
	if cfg.SelfMoveTTL <= 0 {
		cfg.SelfMoveTTL = DefaultSelfMoveTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = ratelimit.RealClock
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		boardID:      cfg.BoardID,
		store:        store,
		api:          api,
		emitter:      emitter,
		ui:           &UIState{},
		roster:       presence.NewRoster(),
		clock:        cfg.Clock,
		ttl:          cfg.SelfMoveTTL,
		logger:       cfg.Logger.WithField("component", "syncer"),
		onError:      cfg.OnError,
		ctx:          ctx,
		cancel:       cancel,
		pendingMoves: make(map[string]time.Time),
		inflight:     make(map[string]int),
		draftPatches: make(map[string]board.CardPatch),
		newTempID:    func() string { return "temp-" + uuid.New().String() },
	}
	e.broadcasts = ratelimit.NewThrottleGroup(cfg.EmitInterval, e.emit, ratelimit.WithClock(cfg.Clock))
	e.drafts = ratelimit.NewDebounceGroup(cfg.EditDebounce, e.flushDraft, ratelimit.WithClock(cfg.Clock))
	return e
}

// Store returns the card store the engine mutates.
func (e *Engine) Store() *cardstore.Store { return e.store }

// UI returns the ephemeral interaction state.
func (e *Engine) UI() *UIState { return e.ui }

// Roster returns the presence roster.
func (e *Engine) Roster() *presence.Roster { return e.roster }

// CreateCard appends a placeholder card, creates it on the server, then swaps
// the placeholder for the server card and broadcasts it. On failure the
// placeholder is removed.
func (e *Engine) CreateCard(ctx context.Context, column board.ColumnID, input board.CardInput) (*board.Card, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := input.Validate(); err != nil {
		return nil, validationError("create", "", err)
	}
	if err := column.Validate(); err != nil {
		return nil, validationError("create", "", err)
	}
	if e.isClosed() {
		return nil, &OpError{Op: "create", Err: ErrClosed}
	}

	tempID := e.newTempID()
	defer e.track(tempID)()
	if _, err := e.store.Create(column, input, tempID); err != nil {
		return nil, &OpError{Op: "create", CardID: tempID, Err: err}
	}
	e.ui.StopAdding()

	created, err := e.api.CreateCard(ctx, board.CardInput{
		Title:       input.Title,
		Description: input.Description,
		Status:      column,
	})
	if err != nil {
		e.store.Delete(tempID)
		e.logger.WithFields(log.Fields{"op": "create", "card_id": tempID}).WithError(err).Warn("Rolled back optimistic create")
		return nil, networkError("create", tempID, err)
	}

	e.store.Replace(tempID, created)
	e.broadcast(board.CardCreated(created))
	return created, nil
}

// UpdateCard applies patch locally, writes it to the server and broadcasts
// the server's card. Order in the patch is ignored; use MoveCard.
// Returns (nil, nil) if the card is not in the local store.
func (e *Engine) UpdateCard(ctx context.Context, cardID string, patch board.CardPatch) (*board.Card, error) {
	patch.Order = nil
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}
	if err := patch.Validate(); err != nil {
		return nil, validationError("update", cardID, err)
	}
	if e.isClosed() {
		return nil, &OpError{Op: "update", CardID: cardID, Err: ErrClosed}
	}

	defer e.track(cardID)()
	snapshot, ok := e.store.Get(cardID)
	if !ok {
		return nil, nil
	}
	e.store.Update(cardID, patch)
	e.ui.stopEditingIf(cardID)

	updated, err := e.api.UpdateCard(ctx, cardID, patch)
	if err != nil {
		e.store.Restore(*snapshot)
		e.logger.WithFields(log.Fields{"op": "update", "card_id": cardID}).WithError(err).Warn("Rolled back optimistic update")
		return nil, networkError("update", cardID, err)
	}

	e.broadcast(board.CardUpdated(updated))
	return updated, nil
}

// DeleteCard removes a card locally, deletes it on the server and broadcasts
// the deletion. On failure the card is restored to its old position.
// Returns nil without effect if the card is not in the local store.
func (e *Engine) DeleteCard(ctx context.Context, cardID string) error {
	if e.isClosed() {
		return &OpError{Op: "delete", CardID: cardID, Err: ErrClosed}
	}

	defer e.track(cardID)()
	snapshot, ok := e.store.Get(cardID)
	if !ok {
		return nil
	}
	e.store.Delete(cardID)
	e.ui.stopEditingIf(cardID)

	if err := e.api.DeleteCard(ctx, cardID); err != nil {
		e.store.Restore(*snapshot)
		e.logger.WithFields(log.Fields{"op": "delete", "card_id": cardID}).WithError(err).Warn("Rolled back optimistic delete")
		return networkError("delete", cardID, err)
	}

	e.broadcast(board.CardDeleted(cardID))
	return nil
}

// MoveCard moves a card locally, records a pending self-move marker, writes
// the new position to the server and broadcasts the move. On failure the
// card is restored and the marker cleared.
// Returns (nil, nil) if the card is not in the local store.
func (e *Engine) MoveCard(ctx context.Context, cardID string, target board.ColumnID, newOrder int) (*board.Card, error) {
	if err := target.Validate(); err != nil {
		return nil, validationError("move", cardID, err)
	}
	if newOrder < 0 {
		return nil, validationError("move", cardID, fmt.Errorf("order must be >= 0, got %d", newOrder))
	}
	if e.isClosed() {
		return nil, &OpError{Op: "move", CardID: cardID, Err: ErrClosed}
	}

	defer e.track(cardID)()
	snapshot, ok := e.store.Get(cardID)
	if !ok {
		return nil, nil
	}
	moved, ok := e.store.Move(cardID, target, newOrder)
	if !ok {
		return nil, nil
	}
	e.markSelfMove(cardID)

	_, err := e.api.UpdateCard(ctx, cardID, board.CardPatch{Status: &target, Order: &moved.Order})
	if err != nil {
		e.store.Restore(*snapshot)
		e.clearSelfMove(cardID)
		e.logger.WithFields(log.Fields{"op": "move", "card_id": cardID}).WithError(err).Warn("Rolled back optimistic move")
		return nil, networkError("move", cardID, err)
	}

	e.broadcast(board.CardMoved(cardID, moved.Status, moved.Order))
	return moved, nil
}

// DropCard resolves a drag-and-drop gesture and moves the card. Gestures
// that resolve to nothing or leave the card in place return (nil, nil).
func (e *Engine) DropCard(ctx context.Context, activeID, overID string) (*board.Card, error) {
	defer e.ui.EndDrag()

	cards := e.store.Cards()
	target, ok := dnd.Resolve(cards, activeID, overID)
	if !ok || dnd.IsNoop(cards, activeID, target) {
		return nil, nil
	}
	final := dnd.Placement(cards, activeID, target)
	return e.MoveCard(ctx, activeID, final.ColumnID, final.NewOrder)
}

// EditDraft records an in-progress edit. Drafts for one card accumulate, and
// the merged patch is sent through UpdateCard once edits pause for the
// debounce delay.
func (e *Engine) EditDraft(cardID string, patch board.CardPatch) {
	e.mu.Lock()
	merged := e.draftPatches[cardID].Merge(patch)
	if merged.IsEmpty() {
		e.mu.Unlock()
		return
	}
	e.draftPatches[cardID] = merged
	e.mu.Unlock()

	e.drafts.Call(cardID, merged)
}

// FlushDraft sends a pending draft for cardID immediately.
func (e *Engine) FlushDraft(cardID string) bool {
	return e.drafts.Flush(cardID)
}

func (e *Engine) flushDraft(cardID string, patch board.CardPatch) {
	e.mu.Lock()
	delete(e.draftPatches, cardID)
	e.mu.Unlock()

	if _, err := e.UpdateCard(e.ctx, cardID, patch); err != nil {
		e.reportError(err)
	}
}

// HandleEvent applies one inbound realtime event.
func (e *Engine) HandleEvent(ev *board.Event) {
	if ev == nil || e.isClosed() {
		return
	}

	switch ev.Type {
	case board.EventCardCreated, board.EventCardUpdated:
		if ev.Card == nil {
			return
		}
		e.store.ApplyFromServer(ev.Card)
		e.ui.stopEditingIf(ev.Card.ID)

	case board.EventCardDeleted:
		e.store.RemoveFromServer(ev.CardID)
		e.ui.stopEditingIf(ev.CardID)

	case board.EventCardMoved:
		if e.isOwnEcho(ev) {
			e.logger.WithField("card_id", ev.CardID).Debug("Suppressed own move echo")
			return
		}
		e.store.Move(ev.CardID, ev.TargetColumnID, ev.NewOrder)

	case board.EventUserJoined:
		e.roster.Add(ev.ConnectionID)

	case board.EventUserLeft:
		e.roster.Remove(ev.ConnectionID)

	case board.EventSessionWelcome:
		e.roster.SetSelf(ev.ConnectionID)
	}
}

// Resync replaces the local cards with the server's board listing. Cards
// with an operation still in flight keep their local state: placeholders and
// optimistic positions survive, and a card being deleted stays gone.
func (e *Engine) Resync(ctx context.Context) error {
	view, err := e.api.GetBoard(ctx, e.boardID)
	if err != nil {
		return fmt.Errorf("failed to fetch board %s: %w", e.boardID, err)
	}

	busy := e.busyIDs()
	var local []board.Card
	for id := range busy {
		if card, ok := e.store.Get(id); ok {
			local = append(local, *card)
		}
	}
	cards := make([]*board.Card, 0, len(view.Cards))
	for _, card := range view.Cards {
		if _, skip := busy[card.ID]; !skip {
			cards = append(cards, card)
		}
	}

	e.store.ReplaceAll(cards)
	sort.SliceStable(local, func(i, j int) bool { return local[i].Order < local[j].Order })
	for _, card := range local {
		e.store.Restore(card)
	}
	if len(local) > 0 {
		e.logger.WithField("kept", len(local)).Debug("Kept in-flight cards across resync")
	}
	return nil
}

// Run consumes realtime events and connection status changes until ctx is
// done or both channels are closed. Every transition to connected triggers
// a Resync, since the channel has no replay. Any transition away from
// connected clears presence.
func (e *Engine) Run(ctx context.Context, events <-chan *board.Event, statuses <-chan realtime.Status) error {
	for events != nil || statuses != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.HandleEvent(ev)

		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			e.handleStatus(ctx, st)
		}
	}
	return nil
}

func (e *Engine) handleStatus(ctx context.Context, st realtime.Status) {
	switch st {
	case realtime.StatusConnected:
		if err := e.Resync(ctx); err != nil {
			e.reportError(err)
		}
	case realtime.StatusDisconnected, realtime.StatusIdle:
		e.roster.Clear()
	}
}

// Close tears the engine down: pending broadcasts and drafts are cancelled,
// presence and own identity are cleared, and later operations fail with
// ErrClosed. In-flight operations complete without broadcasting.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.pendingMoves = make(map[string]time.Time)
	e.draftPatches = make(map[string]board.CardPatch)
	e.mu.Unlock()

	e.cancel()
	e.broadcasts.Stop()
	e.drafts.Stop()
	e.roster.Clear()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// broadcast throttles per card. Repeats of one event type coalesce to the
// latest; a different type first flushes the pending one so a card's events
// always go out in the order they happened.
func (e *Engine) broadcast(ev *board.Event) {
	if e.emitter == nil {
		return
	}
	ev.BoardID = e.boardID
	key := ev.SubjectID()

	e.broadcastMu.Lock()
	defer e.broadcastMu.Unlock()
	if pending, ok := e.broadcasts.Pending(key); ok && pending.Type != ev.Type {
		e.broadcasts.Flush(key)
	}
	e.broadcasts.Call(key, ev)
}

func (e *Engine) emit(_ string, ev *board.Event) {
	if e.isClosed() {
		return
	}
	if err := e.emitter.Emit(ev); err != nil {
		e.logger.WithFields(log.Fields{"event_type": ev.Type, "card_id": ev.SubjectID()}).WithError(err).Debug("Broadcast dropped")
	}
}

// track marks cardID as having an operation in flight until the returned
// func is called.
func (e *Engine) track(cardID string) func() {
	e.mu.Lock()
	e.inflight[cardID]++
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.inflight[cardID]--; e.inflight[cardID] <= 0 {
			delete(e.inflight, cardID)
		}
	}
}

func (e *Engine) busyIDs() map[string]struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]struct{}, len(e.inflight))
	for id := range e.inflight {
		out[id] = struct{}{}
	}
	return out
}

func (e *Engine) markSelfMove(cardID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	for id, expiry := range e.pendingMoves {
		if now.After(expiry) {
			delete(e.pendingMoves, id)
		}
	}
	e.pendingMoves[cardID] = now.Add(e.ttl)
}

func (e *Engine) clearSelfMove(cardID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pendingMoves, cardID)
}

// isOwnEcho consumes the pending self-move marker for the event's card.
// A move stamped with another connection's origin is never an echo.
func (e *Engine) isOwnEcho(ev *board.Event) bool {
	self := e.roster.Self()
	if ev.Origin != "" && self != "" && ev.Origin != self {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	expiry, ok := e.pendingMoves[ev.CardID]
	if !ok {
		return ev.Origin != "" && ev.Origin == self
	}
	delete(e.pendingMoves, ev.CardID)
	return !e.clock.Now().After(expiry)
}

// PendingSelfMoves returns the number of unconsumed self-move markers.
func (e *Engine) PendingSelfMoves() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pendingMoves)
}

func (e *Engine) reportError(err error) {
	e.logger.WithError(err).Warn("Background sync operation failed")
	if e.onError != nil {
		e.onError(err)
	}
}
