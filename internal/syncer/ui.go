package syncer

import (
	"sync"

	"github.com/dyluth/kanban/pkg/board"
)

// UIState is the ephemeral, per-client interaction state. It is never
// persisted or shared.
type UIState struct {
	mu       sync.RWMutex
	editing  string
	adding   board.ColumnID
	dragging string
}

// StartEditing marks a card as open for local editing.
func (u *UIState) StartEditing(cardID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.editing = cardID
}

// StopEditing closes the edit surface.
func (u *UIState) StopEditing() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.editing = ""
}

// Editing returns the id of the card being edited, or "".
func (u *UIState) Editing() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.editing
}

// stopEditingIf closes the edit surface if it shows cardID.
func (u *UIState) stopEditingIf(cardID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.editing != "" && u.editing == cardID {
		u.editing = ""
		return true
	}
	return false
}

// StartAdding opens the new-card form on a column.
func (u *UIState) StartAdding(column board.ColumnID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.adding = column
}

// StopAdding closes the new-card form.
func (u *UIState) StopAdding() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.adding = ""
}

// Adding returns the column showing the new-card form, or "".
func (u *UIState) Adding() board.ColumnID {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.adding
}

// StartDrag records the card being dragged.
func (u *UIState) StartDrag(cardID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dragging = cardID
}

// EndDrag clears the drag state.
func (u *UIState) EndDrag() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dragging = ""
}

// Dragging returns the id of the card mid-drag, or "".
func (u *UIState) Dragging() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.dragging
}
