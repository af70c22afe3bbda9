package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/kanban/internal/client"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/realtime"
	"github.com/dyluth/kanban/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor real-time board activity",
	Long: `Stream card changes and presence events as other clients make them.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch the default board
  kanban watch

  # Export events as JSON
  kanban watch --output=json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wsURL, err := client.WebsocketURL(cfg.Client.ServerURL)
	if err != nil {
		return printer.Error("invalid server URL", err.Error(), nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport := realtime.NewTransport(realtime.TransportConfig{
		URL:               wsURL,
		BoardID:           cfg.Board.ID,
		ReconnectDelay:    cfg.Sync.ReconnectDelay,
		ReconnectDelayMax: cfg.Sync.ReconnectDelayMax,
		ConnectTimeout:    cfg.Sync.ConnectTimeout,
		Logger:            clientLogger(cfg),
	})
	if err := transport.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer transport.Close()

	go reportStatus(ctx, transport)

	return watch.Stream(ctx, transport.Events(), format, cmd.OutOrStdout(), nil)
}

// reportStatus writes connection changes to stderr so they never mix with
// the event stream.
func reportStatus(ctx context.Context, transport *realtime.Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-transport.StatusChanges():
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "connection %s\n", printer.Status(st))
		}
	}
}
