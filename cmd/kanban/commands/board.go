package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/kanban/internal/boardview"
	"github.com/dyluth/kanban/internal/client"
	"github.com/dyluth/kanban/internal/filter"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/spf13/cobra"
)

var (
	boardOutputFormat string
	boardColumn       string
	boardTitle        string
	boardSince        string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the board",
	Long: `Show every column with its cards in order.

The board is synced from the server first. When the server cannot be reached
the last local snapshot is shown instead.

Output Formats:
  table - Human-readable columns with short IDs
  jsonl - Line-delimited JSON, one card per line

Filters:
  --column - Only this column (todo, in_progress, done)
  --title  - Glob on the card title ("*deploy*"), case-insensitive
  --since  - Cards created after this time (duration or RFC3339)

Examples:
  # Show the board
  kanban board

  # Cards added in the last hour, as JSON
  kanban board --since=1h --output=jsonl | jq .title`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&boardOutputFormat, "output", "o", "table", "Output format: table or jsonl")
	boardCmd.Flags().StringVar(&boardColumn, "column", "", "Only show this column")
	boardCmd.Flags().StringVar(&boardTitle, "title", "", "Filter by title (glob pattern)")
	boardCmd.Flags().StringVar(&boardSince, "since", "", "Show cards created after time (duration or RFC3339)")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := boardview.ParseOutputFormat(boardOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", boardOutputFormat),
			[]string{"Valid formats: table, jsonl"},
		)
	}

	criteria, err := boardCriteria(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	session, connErr := openSession(ctx, cfg)
	if session == nil {
		return connErr
	}
	defer session.Close()

	if connErr != nil {
		if cfg.Client.SnapshotPath == "" || session.Store.Len() == 0 {
			return unreachable(cfg, connErr)
		}
		printer.Warning("Server unreachable, showing local snapshot from %s\n", cfg.Client.SnapshotPath)
	}

	out := cmd.OutOrStdout()
	if format == boardview.OutputFormatTable {
		fmt.Fprintf(out, "%s  %s\n", printer.Status(session.Transport.Status()), presenceLine(session))
	}

	b := session.Board
	if b.Name == "" {
		b.Name = board.DefaultBoardName
	}
	return boardview.FormatBoard(out, b, criteria.Columns(session.Store.Columns()), format, time.Now())
}

func boardCriteria(now time.Time) (*filter.Criteria, error) {
	criteria := &filter.Criteria{TitleGlob: boardTitle}

	if boardColumn != "" {
		col, err := board.ParseColumn(boardColumn)
		if err != nil {
			return nil, printer.Error(
				"invalid column",
				err.Error(),
				[]string{"Valid columns: todo, in_progress, done"},
			)
		}
		criteria.Column = col
	}

	since, err := filter.ParseSince(boardSince, now)
	if err != nil {
		return nil, printer.Error("invalid --since value", err.Error(), nil)
	}
	criteria.Since = since
	return criteria, nil
}

// presenceLine lists the other users connected to the board.
func presenceLine(session *client.Session) string {
	others := session.Engine.Roster().Others()
	if len(others) == 0 {
		return "nobody else online"
	}
	swatches := make([]string, 0, len(others))
	for _, e := range others {
		swatches = append(swatches, printer.Swatch(e))
	}
	return strings.Join(swatches, " ")
}
