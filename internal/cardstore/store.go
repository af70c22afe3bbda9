// Package cardstore holds the canonical card table of one side (client or
// server) and the operations that mutate it. Every operation leaves every
// column dense: the orders of a column's cards are exactly 0..n-1.
package cardstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dyluth/kanban/pkg/board"
	"github.com/google/uuid"
)

// ErrDuplicateID is returned by Create when the requested id already exists.
var ErrDuplicateID = errors.New("card id already exists")

// ChangeKind names the operation that produced a Change.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeMoved    ChangeKind = "moved"
	ChangeReplaced ChangeKind = "replaced"
	ChangeRestored ChangeKind = "restored"
	ChangeReset    ChangeKind = "reset"
)

// Change describes one mutation. Columns lists every column whose membership
// or ordering may have changed.
type Change struct {
	Kind    ChangeKind
	CardID  string
	Columns []board.ColumnID
}

// Store is the in-memory card table. It is safe for concurrent use; each
// operation runs to completion before the next starts. Observers are called
// after the operation has released the lock, in registration order.
type Store struct {
	mu    sync.Mutex
	cards []*board.Card

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObsID int

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator used when Create is called without an id.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithCards seeds the store. Columns are rebalanced on load.
func WithCards(cards []*board.Card) Option {
	return func(s *Store) { s.cards = cloneValid(cards) }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		observers: make(map[int]func(Change)),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rebalanceAll()
	return s
}

// Subscribe registers fn to be called after every change.
// The returned function removes the registration.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(ch Change) {
	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// Create appends a new card at the end of column. If id is empty a fresh
// one is generated; a non-empty id is used as-is (optimistic placeholders).
func (s *Store) Create(column board.ColumnID, input board.CardInput, id string) (*board.Card, error) {
	if err := column.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if id == "" {
		id = s.newID()
	}
	if s.indexOf(id) >= 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	card := &board.Card{
		ID:          id,
		Title:       input.Title,
		Description: input.Description,
		Status:      column,
		Order:       s.countLocked(column),
		CreatedAt:   s.now(),
	}
	s.cards = append(s.cards, card)
	out := card.Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeCreated, CardID: id, Columns: []board.ColumnID{column}})
	return out, nil
}

// Update applies the present fields of patch. A status change appends the
// card to the end of the new column and closes the gap in the old one.
// Order in the patch is ignored; use Move to position a card.
// Returns false if the card does not exist.
func (s *Store) Update(id string, patch board.CardPatch) (*board.Card, bool) {
	if patch.Status != nil && patch.Status.Validate() != nil {
		return nil, false
	}

	s.mu.Lock()
	card := s.findLocked(id)
	if card == nil {
		s.mu.Unlock()
		return nil, false
	}

	if patch.Title != nil {
		card.Title = *patch.Title
	}
	if patch.Description != nil {
		card.Description = *patch.Description
	}

	cols := []board.ColumnID{card.Status}
	if patch.Status != nil && *patch.Status != card.Status {
		prev := card.Status
		target := *patch.Status
		card.Order = s.countLocked(target)
		card.Status = target
		Rebalance(s.cards, prev)
		cols = append(cols, target)
	}
	out := card.Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpdated, CardID: id, Columns: cols})
	return out, true
}

// Delete removes a card and rebalances its former column.
// Returns the removed card, or false if it did not exist.
func (s *Store) Delete(id string) (*board.Card, bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, false
	}
	removed := s.cards[idx]
	s.cards = append(s.cards[:idx], s.cards[idx+1:]...)
	Rebalance(s.cards, removed.Status)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeDeleted, CardID: id, Columns: []board.ColumnID{removed.Status}})
	return removed, true
}

// RemoveFromServer is Delete driven by a remote notification.
func (s *Store) RemoveFromServer(id string) bool {
	_, ok := s.Delete(id)
	return ok
}

// Move places a card in target at index newOrder and rebalances the source
// and target columns. newOrder is clamped to [0, n] where n is the number of
// other cards in target, so it is always the card's resulting index.
// Returns false if the card does not exist or target is invalid.
func (s *Store) Move(id string, target board.ColumnID, newOrder int) (*board.Card, bool) {
	if target.Validate() != nil {
		return nil, false
	}

	s.mu.Lock()
	card := s.findLocked(id)
	if card == nil {
		s.mu.Unlock()
		return nil, false
	}
	prev := card.Status
	s.placeLocked(card, target, newOrder)
	if prev != target {
		Rebalance(s.cards, prev)
	}
	out := card.Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeMoved, CardID: id, Columns: columnsOf(prev, target)})
	return out, true
}

// Reorder moves a card to newOrder within its current column.
func (s *Store) Reorder(id string, newOrder int) (*board.Card, bool) {
	card, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return s.Move(id, card.Status, newOrder)
}

// ApplyFromServer upserts an authoritative card. The card is placed at its
// payload Order in its column; if it changed column the old one is rebalanced.
// A card with an unknown status is ignored.
func (s *Store) ApplyFromServer(card *board.Card) bool {
	if card == nil || card.ID == "" || card.Status.Validate() != nil {
		return false
	}
	incoming := card.Clone()

	s.mu.Lock()
	kind := ChangeUpdated
	existing := s.findLocked(incoming.ID)
	var prev board.ColumnID
	if existing == nil {
		kind = ChangeCreated
		prev = incoming.Status
		existing = incoming
		s.cards = append(s.cards, existing)
	} else {
		prev = existing.Status
		existing.Title = incoming.Title
		existing.Description = incoming.Description
		existing.CreatedAt = incoming.CreatedAt
	}
	s.placeLocked(existing, incoming.Status, incoming.Order)
	if prev != incoming.Status {
		Rebalance(s.cards, prev)
	}
	s.mu.Unlock()

	s.notify(Change{Kind: kind, CardID: incoming.ID, Columns: columnsOf(prev, incoming.Status)})
	return true
}

// Replace swaps the placeholder tempID for the server-confirmed card, keeping
// the placeholder's position. If serverCard's id is already present (its
// remote notification won the race) the placeholder is simply dropped.
// Returns false if the placeholder no longer exists.
func (s *Store) Replace(tempID string, serverCard *board.Card) bool {
	if serverCard == nil || serverCard.Status.Validate() != nil {
		return false
	}

	s.mu.Lock()
	idx := s.indexOf(tempID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	placeholder := s.cards[idx]
	cols := columnsOf(placeholder.Status, serverCard.Status)

	if tempID != serverCard.ID && s.indexOf(serverCard.ID) >= 0 {
		s.cards = append(s.cards[:idx], s.cards[idx+1:]...)
		Rebalance(s.cards, placeholder.Status)
		s.mu.Unlock()
		s.notify(Change{Kind: ChangeReplaced, CardID: serverCard.ID, Columns: cols})
		return true
	}

	position := placeholder.Order
	if placeholder.Status != serverCard.Status {
		position = serverCard.Order
	}
	prev := placeholder.Status
	replacement := serverCard.Clone()
	s.cards[idx] = replacement
	s.placeLocked(replacement, replacement.Status, position)
	if prev != replacement.Status {
		Rebalance(s.cards, prev)
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReplaced, CardID: serverCard.ID, Columns: cols})
	return true
}

// Restore puts a previously captured card value back exactly: fields,
// column and index. A card missing from the store is re-inserted.
func (s *Store) Restore(snapshot board.Card) {
	if snapshot.Status.Validate() != nil {
		return
	}

	s.mu.Lock()
	card := s.findLocked(snapshot.ID)
	prev := snapshot.Status
	if card == nil {
		card = snapshot.Clone()
		s.cards = append(s.cards, card)
	} else {
		prev = card.Status
		card.Title = snapshot.Title
		card.Description = snapshot.Description
		card.CreatedAt = snapshot.CreatedAt
	}
	s.placeLocked(card, snapshot.Status, snapshot.Order)
	if prev != snapshot.Status {
		Rebalance(s.cards, prev)
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRestored, CardID: snapshot.ID, Columns: columnsOf(prev, snapshot.Status)})
}

// ReplaceAll swaps the whole table, e.g. after fetching a board listing.
// Cards with an unknown status are dropped and every column is rebalanced.
func (s *Store) ReplaceAll(cards []*board.Card) {
	s.mu.Lock()
	s.cards = cloneValid(cards)
	s.rebalanceAll()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset, Columns: board.Columns})
}

// Get returns a copy of the card.
func (s *Store) Get(id string) (*board.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card := s.findLocked(id)
	if card == nil {
		return nil, false
	}
	return card.Clone(), true
}

// Read returns copies of the column's cards sorted by Order.
func (s *Store) Read(column board.ColumnID) []*board.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneAll(columnCards(s.cards, column))
}

// Count returns the number of cards in column.
func (s *Store) Count(column board.ColumnID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countLocked(column)
}

// Columns returns every column with its sorted cards.
func (s *Store) Columns() []board.Column {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols := make([]board.Column, 0, len(board.Columns))
	for _, id := range board.Columns {
		cols = append(cols, board.Column{
			ID:    id,
			Title: id.Title(),
			Cards: cloneAll(columnCards(s.cards, id)),
		})
	}
	return cols
}

// Cards returns copies of every card, grouped by column in display order.
func (s *Store) Cards() []*board.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*board.Card, 0, len(s.cards))
	for _, id := range board.Columns {
		out = append(out, cloneAll(columnCards(s.cards, id))...)
	}
	return out
}

// Len returns the number of cards.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cards)
}

// placeLocked moves card into column at index (clamped) and renumbers that
// column. The caller rebalances the card's previous column.
func (s *Store) placeLocked(card *board.Card, column board.ColumnID, index int) {
	others := make([]*board.Card, 0)
	for _, c := range columnCards(s.cards, column) {
		if c != card {
			others = append(others, c)
		}
	}

	if index < 0 {
		index = 0
	}
	if index > len(others) {
		index = len(others)
	}

	seq := make([]*board.Card, 0, len(others)+1)
	seq = append(seq, others[:index]...)
	seq = append(seq, card)
	seq = append(seq, others[index:]...)

	card.Status = column
	for i, c := range seq {
		c.Order = i
	}
}

func (s *Store) rebalanceAll() {
	for _, col := range board.Columns {
		Rebalance(s.cards, col)
	}
}

func (s *Store) findLocked(id string) *board.Card {
	if idx := s.indexOf(id); idx >= 0 {
		return s.cards[idx]
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) countLocked(column board.ColumnID) int {
	n := 0
	for _, c := range s.cards {
		if c.Status == column {
			n++
		}
	}
	return n
}

func columnsOf(a, b board.ColumnID) []board.ColumnID {
	if a == b {
		return []board.ColumnID{a}
	}
	return []board.ColumnID{a, b}
}

func cloneAll(cards []*board.Card) []*board.Card {
	out := make([]*board.Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

func cloneValid(cards []*board.Card) []*board.Card {
	out := make([]*board.Card, 0, len(cards))
	for _, c := range cards {
		if c == nil || c.Status.Validate() != nil {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}
