// Package snapshot persists a client's local board state and nickname in a
// SQLite key-value table, so a restarted client can render before it has
// reached the server.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/kanban/internal/cardstore"
	"github.com/dyluth/kanban/pkg/board"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	// StoreKey holds the JSON board snapshot.
	StoreKey = "kanban-store"

	// NicknameKey holds the user's display nickname.
	NicknameKey = "realtime-kanban:nickname"
)

// Snapshot is the persisted board state. Ephemeral UI state is never part
// of it.
type Snapshot struct {
	Boards  []board.Board            `json:"boards"`
	Columns []board.ColumnDefinition `json:"columns"`
	Cards   []*board.Card            `json:"cards"`
}

// Capture builds a snapshot of store for b.
func Capture(b board.Board, store *cardstore.Store) *Snapshot {
	return &Snapshot{
		Boards:  []board.Board{b},
		Columns: board.ColumnDefinitions(b.ID),
		Cards:   store.Cards(),
	}
}

// DB is the SQLite-backed key-value store.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writes
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) get(key string) ([]byte, bool, error) {
	var value []byte
	err := d.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (d *DB) put(key string, value []byte) error {
	_, err := d.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (d *DB) delete(key string) error {
	if _, err := d.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Load returns the stored snapshot. ok is false when none has been saved.
// Cards that fail validation are dropped.
func (d *DB) Load() (snap *Snapshot, ok bool, err error) {
	data, ok, err := d.get(StoreKey)
	if err != nil || !ok {
		return nil, false, err
	}

	snap = &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	valid := snap.Cards[:0]
	for _, c := range snap.Cards {
		if c != nil && c.Validate() == nil {
			valid = append(valid, c)
		}
	}
	snap.Cards = valid
	return snap, true, nil
}

// Save replaces the stored snapshot.
func (d *DB) Save(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return d.put(StoreKey, data)
}

// Nickname returns the stored nickname, or "" if none is set.
func (d *DB) Nickname() (string, error) {
	data, ok, err := d.get(NicknameKey)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SetNickname stores the trimmed name. A blank name removes the key.
// Returns the value actually stored.
func (d *DB) SetNickname(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", d.delete(NicknameKey)
	}
	return trimmed, d.put(NicknameKey, []byte(trimmed))
}

// Attach saves a fresh snapshot of store after every change until the
// returned function is called. Write failures are logged and do not stop
// later saves.
func (d *DB) Attach(b board.Board, store *cardstore.Store, logger log.FieldLogger) (detach func()) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return store.Subscribe(func(ch cardstore.Change) {
		if err := d.Save(Capture(b, store)); err != nil {
			logger.WithFields(log.Fields{"change": ch.Kind, "card_id": ch.CardID}).WithError(err).Warn("Failed to save local snapshot")
		}
	})
}
