package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default kanban.yml",
	Long: `Write a kanban.yml with every setting at its default value.

The file is written to the path given by --config. An existing file is left
alone unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return printer.Error(
			"config already exists",
			fmt.Sprintf("%s is already present.", configPath),
			[]string{"Overwrite it:\n  kanban init --force"},
		)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config: %w", err)
	}

	if err := config.Default().Write(configPath); err != nil {
		return err
	}
	printer.Success("Wrote %s\n", configPath)
	return nil
}
