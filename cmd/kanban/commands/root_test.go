package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out := execute(t)
	assert.Contains(t, out, "Usage:", "Help should be displayed")
	assert.Contains(t, out, "kanban", "Help should show command name")
}

// TestRootCommand_RejectsUnknownFlags tests that unknown flags passed to the
// root command cause an error instead of being silently ignored
func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, err := executeErr(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	for _, name := range []string{"serve", "board", "watch", "card", "nickname", "init"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	card, _, err := rootCmd.Find([]string{"card"})
	require.NoError(t, err)
	var subs []string
	for _, c := range card.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"add", "edit", "move", "rm"}, subs)
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2025-01-01")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2025-01-01)", rootCmd.Version)

	assert.Contains(t, execute(t, "--version"), "1.2.3")
}
