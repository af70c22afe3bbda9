// Package client wires one kanban client together: the local snapshot, the
// card store, the CRUD client, the realtime transport and the sync engine.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/dyluth/kanban/internal/api"
	"github.com/dyluth/kanban/internal/cardstore"
	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/realtime"
	"github.com/dyluth/kanban/internal/snapshot"
	"github.com/dyluth/kanban/internal/syncer"
	"github.com/dyluth/kanban/pkg/board"
	log "github.com/sirupsen/logrus"
)

// Session is a running client for one board.
type Session struct {
	Board     board.Board
	Store     *cardstore.Store
	API       *api.Client
	Transport *realtime.Transport
	Engine    *syncer.Engine

	snapshot *snapshot.DB
	detach   func()
	logger   log.FieldLogger

	mu        sync.Mutex
	connected chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// Open builds a session from cfg. When a snapshot path is configured the
// store starts from the last saved snapshot and every change is saved back.
// Nothing touches the network until Start.
func Open(cfg *config.KanbanConfig, logger log.FieldLogger) (*Session, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	b := board.Board{ID: cfg.Board.ID, Name: cfg.Board.Name}

	wsURL, err := WebsocketURL(cfg.Client.ServerURL)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Board:     b,
		API:       api.New(cfg.Client.ServerURL),
		logger:    logger.WithField("board_id", b.ID),
		connected: make(chan struct{}),
	}

	var cards []*board.Card
	if cfg.Client.SnapshotPath != "" {
		db, err := snapshot.Open(cfg.Client.SnapshotPath)
		if err != nil {
			return nil, err
		}
		snap, ok, err := db.Load()
		if err != nil {
			s.logger.WithError(err).Warn("Ignoring unreadable local snapshot")
		} else if ok {
			cards = snap.Cards
		}
		s.snapshot = db
	}

	s.Store = cardstore.New(cardstore.WithCards(cards))
	if s.snapshot != nil {
		s.detach = s.snapshot.Attach(b, s.Store, logger)
	}

	s.Transport = realtime.NewTransport(realtime.TransportConfig{
		URL:               wsURL,
		BoardID:           b.ID,
		ReconnectDelay:    cfg.Sync.ReconnectDelay,
		ReconnectDelayMax: cfg.Sync.ReconnectDelayMax,
		ConnectTimeout:    cfg.Sync.ConnectTimeout,
		Logger:            logger,
	})
	s.Engine = syncer.New(syncer.Config{
		BoardID:      b.ID,
		EmitInterval: cfg.Sync.EmitInterval,
		EditDebounce: cfg.Sync.EditDebounce,
		SelfMoveTTL:  cfg.Sync.SelfMoveTTL,
		Logger:       logger,
	}, s.Store, s.API, s.Transport)

	return s, nil
}

// WebsocketURL derives the realtime endpoint from the server's http URL.
func WebsocketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme %q", serverURL, u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// Start connects the transport and runs the engine until Close.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := s.Transport.Connect(runCtx); err != nil {
		cancel()
		return err
	}
	s.cancel = cancel
	s.done = make(chan struct{})

	statuses := make(chan realtime.Status, 1)
	go s.watchStatus(runCtx, statuses)
	go func() {
		defer close(s.done)
		if err := s.Engine.Run(runCtx, s.Transport.Events(), statuses); err != nil && runCtx.Err() == nil {
			s.logger.WithError(err).Warn("Sync engine stopped")
		}
	}()
	return nil
}

// watchStatus forwards transport status changes to the engine and releases
// WaitConnected on the first connection.
func (s *Session) watchStatus(ctx context.Context, out chan<- realtime.Status) {
	defer close(out)
	var once sync.Once
	for st := range s.Transport.StatusChanges() {
		s.logger.WithField("status", st).Debug("Connection status changed")
		if st == realtime.StatusConnected {
			once.Do(func() { close(s.connected) })
		}
		select {
		case out <- st:
		case <-ctx.Done():
			return
		}
	}
}

// WaitConnected blocks until the transport first connects, then brings the
// store up to date with the server.
func (s *Session) WaitConnected(ctx context.Context) error {
	select {
	case <-s.connected:
	case <-ctx.Done():
		if err := s.Transport.LastError(); err != nil {
			return fmt.Errorf("not connected: %w", err)
		}
		return ctx.Err()
	}
	return s.Engine.Resync(ctx)
}

// Nickname returns the stored display nickname.
func (s *Session) Nickname() (string, error) {
	if s.snapshot == nil {
		return "", nil
	}
	return s.snapshot.Nickname()
}

// SetNickname stores name, trimmed. Blank clears it.
func (s *Session) SetNickname(name string) (string, error) {
	if s.snapshot == nil {
		return "", fmt.Errorf("no snapshot path configured")
	}
	return s.snapshot.SetNickname(name)
}

// Close stops the engine and the transport and closes the snapshot.
func (s *Session) Close() error {
	s.Engine.Close()
	err := s.Transport.Close()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	if s.detach != nil {
		s.detach()
	}
	if s.snapshot != nil {
		if cerr := s.snapshot.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
