package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// executeErr runs the real root command with args, capturing everything the
// command and the printer write. Flag values are reset first because cobra
// keeps them between runs.
func executeErr(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	color.NoColor = true
	buf := new(bytes.Buffer)
	printer.SetOutput(buf, buf)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	t.Cleanup(func() {
		printer.SetOutput(os.Stdout, os.Stderr)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := Execute()
	return buf.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeErr(t, args...)
	require.NoError(t, err, out)
	return out
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeConfig writes a kanban.yml pointing at serverURL with a snapshot in
// the test's temp dir and returns its path.
func writeConfig(t *testing.T, dir, serverURL string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Client.ServerURL = serverURL
	cfg.Client.SnapshotPath = filepath.Join(dir, "kanban.db")
	path := filepath.Join(dir, "kanban.yml")
	require.NoError(t, cfg.Write(path))
	return path
}
