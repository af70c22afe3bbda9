// Package server is the kanban server: the authoritative card store behind
// a REST surface, the realtime hub, and optional Redis write-through.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/kanban/internal/cardstore"
	"github.com/dyluth/kanban/internal/metrics"
	"github.com/dyluth/kanban/internal/realtime"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// Config configures a Server.
type Config struct {
	Board board.Board

	// CORSOrigin is the allowed browser origin for REST and websocket
	// requests. Empty allows any.
	CORSOrigin string

	// Persistence, when set, receives every mutation and relays realtime
	// events between server nodes.
	Persistence *board.Client

	// SeedDemo loads the demo cards when the board starts empty.
	SeedDemo bool

	NodeID  string
	Logger  log.FieldLogger
	Metrics *metrics.Metrics
}

// Server owns the echo app, the card store and the realtime hub.
type Server struct {
	board   board.Board
	store   *cardstore.Store
	persist *board.Client
	hub     *realtime.Hub
	metrics *metrics.Metrics
	logger  log.FieldLogger
	echo    *echo.Echo

	// writeMu serialises a mutation with its write-through so Redis never
	// sees orders from interleaved operations.
	writeMu sync.Mutex

	cancel context.CancelFunc
}

// New builds a server. With persistence configured the cards are loaded from
// Redis and the hub subscribes to the board's fan-out channel.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Board.ID == "" {
		cfg.Board = board.DefaultBoard()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Persistence != nil && cfg.Persistence.BoardID() != cfg.Board.ID {
		return nil, fmt.Errorf("persistence board %q does not match board %q", cfg.Persistence.BoardID(), cfg.Board.ID)
	}

	logger := cfg.Logger.WithField("board_id", cfg.Board.ID)

	cards, err := loadCards(ctx, cfg.Persistence, cfg.SeedDemo)
	if err != nil {
		return nil, err
	}

	s := &Server{
		board:   cfg.Board,
		store:   cardstore.New(cardstore.WithCards(cards)),
		persist: cfg.Persistence,
		metrics: cfg.Metrics,
		logger:  logger,
		hub: realtime.NewHub(realtime.HubConfig{
			NodeID:        cfg.NodeID,
			AllowedOrigin: cfg.CORSOrigin,
			Logger:        cfg.Logger,
			Metrics:       cfg.Metrics,
		}),
	}

	if s.persist != nil {
		if len(cards) > 0 {
			if err := s.persist.SaveCards(ctx, s.store.Cards()...); err != nil {
				return nil, fmt.Errorf("failed to save initial cards: %w", err)
			}
		}
		fanCtx, cancel := context.WithCancel(context.Background())
		if err := s.hub.AttachFanout(fanCtx, s.persist); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to attach event fan-out: %w", err)
		}
		s.cancel = cancel
	}

	s.echo = s.routes(cfg.CORSOrigin)
	logger.WithField("cards", s.store.Len()).Info("Server ready")
	return s, nil
}

func loadCards(ctx context.Context, persist *board.Client, seed bool) ([]*board.Card, error) {
	if persist != nil {
		cards, err := persist.LoadCards(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load cards: %w", err)
		}
		if len(cards) > 0 {
			return cards, nil
		}
	}
	if seed {
		return cardstore.DemoCards(), nil
	}
	return nil, nil
}

func (s *Server) routes(corsOrigin string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	origins := []string{"*"}
	if corsOrigin != "" {
		origins = []string{corsOrigin}
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/api/boards/:id", s.getBoard)
	e.POST("/api/cards", s.createCard)
	e.PATCH("/api/cards/:id", s.updateCard)
	e.DELETE("/api/cards/:id", s.deleteCard)
	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	e.GET("/ws", echo.WrapHandler(s.hub))
	return e
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.echo }

// Store returns the authoritative card store.
func (s *Server) Store() *cardstore.Store { return s.store }

// Hub returns the realtime hub.
func (s *Server) Hub() *realtime.Hub { return s.hub }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.WithField("addr", addr).Info("Listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every websocket and stops the
// fan-out relay.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.hub.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
