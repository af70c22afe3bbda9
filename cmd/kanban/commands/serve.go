package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/logging"
	"github.com/dyluth/kanban/internal/metrics"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/server"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveRedisURL string
	serveNoSeed   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kanban server",
	Long: `Run the REST and realtime server for one board.

Without Redis the board lives in memory and starts from the demo cards.
With --redis-url every change is written through to Redis, the board is
reloaded from Redis on restart, and realtime events are relayed between all
server nodes that share the Redis instance.

Endpoints:
  GET    /api/boards/:id   board with columns and cards
  POST   /api/cards        create a card
  PATCH  /api/cards/:id    update or move a card
  DELETE /api/cards/:id    delete a card
  GET    /ws               realtime channel
  GET    /healthz          health check
  GET    /metrics          Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveRedisURL, "redis-url", "", "Redis URL for persistence (overrides server.redis_url)")
	serveCmd.Flags().BoolVar(&serveNoSeed, "no-seed", false, "Start an empty board instead of the demo cards")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveRedisURL != "" {
		cfg.Server.RedisURL = serveRedisURL
	}
	if serveNoSeed {
		cfg.Server.SeedDemo = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, closePersistence, err := buildServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePersistence()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return printer.ErrorWithContext(
				"server failed",
				err.Error(),
				map[string]string{"Address": cfg.Server.Addr},
				[]string{"Pick another address:\n  kanban serve --addr :3001"},
			)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// buildServer wires logging, metrics and optional Redis persistence into a
// server for cfg.
func buildServer(ctx context.Context, cfg *config.KanbanConfig) (*server.Server, func(), error) {
	logger := logging.New(cfg.Log)
	closePersistence := func() {}

	var persist *board.Client
	if cfg.Server.RedisURL != "" {
		client, err := board.NewClientFromURL(cfg.Server.RedisURL, cfg.Board.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create board client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to Redis: %v", err),
				map[string]string{"Redis URL": cfg.Server.RedisURL},
				[]string{"Check that Redis is running", "Run without persistence by leaving server.redis_url empty"},
			)
		}
		persist = client
		closePersistence = func() { client.Close() }
	}

	srv, err := server.New(ctx, server.Config{
		Board:       board.Board{ID: cfg.Board.ID, Name: cfg.Board.Name},
		CORSOrigin:  cfg.Server.CORSOrigin,
		Persistence: persist,
		SeedDemo:    cfg.Server.SeedDemo,
		NodeID:      uuid.NewString(),
		Logger:      logger,
		Metrics:     metrics.New(),
	})
	if err != nil {
		closePersistence()
		return nil, nil, fmt.Errorf("failed to start server: %w", err)
	}
	return srv, closePersistence, nil
}
