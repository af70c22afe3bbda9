package commands

import (
	"github.com/dyluth/kanban/internal/client"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/spf13/cobra"
)

var nicknameCmd = &cobra.Command{
	Use:   "nickname [NAME]",
	Short: "Show or set your display nickname",
	Long: `Show or set the nickname stored in the local snapshot.

With no argument the current nickname is printed. An empty NAME ("")
clears it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNickname,
}

func init() {
	rootCmd.AddCommand(nicknameCmd)
}

func runNickname(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Client.SnapshotPath == "" {
		return printer.Error(
			"no snapshot configured",
			"The nickname is kept in the local snapshot, and client.snapshot_path is empty.",
			[]string{"Set client.snapshot_path in kanban.yml"},
		)
	}

	session, err := client.Open(cfg, clientLogger(cfg))
	if err != nil {
		return err
	}
	defer session.Close()

	if len(args) == 0 {
		name, err := session.Nickname()
		if err != nil {
			return err
		}
		if name == "" {
			printer.Info("No nickname set\n")
			return nil
		}
		printer.Info("%s\n", name)
		return nil
	}

	name, err := session.SetNickname(args[0])
	if err != nil {
		return err
	}
	if name == "" {
		printer.Success("Nickname cleared\n")
		return nil
	}
	printer.Success("Nickname set to %s\n", name)
	return nil
}
