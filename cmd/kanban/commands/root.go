package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath  string
	serverURL   string
	boardID     string
	connectWait time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Kanban - realtime collaborative board",
	Long: `Kanban serves and edits a three-column board (Todo, In Progress, Done)
that stays in sync across every connected client.

Run "kanban serve" to start the server, then use the board, card and watch
commands from any number of terminals.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to kanban.yml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (overrides client.server_url)")
	rootCmd.PersistentFlags().StringVar(&boardID, "board", "", "Board ID (overrides board.id)")
	rootCmd.PersistentFlags().DurationVar(&connectWait, "timeout", 5*time.Second, "How long to wait for the server")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.KanbanConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Write a fresh config:\n  kanban init --force"},
		)
	}
	if serverURL != "" {
		cfg.Client.ServerURL = serverURL
	}
	if boardID != "" {
		cfg.Board.ID = boardID
	}
	return cfg, nil
}
