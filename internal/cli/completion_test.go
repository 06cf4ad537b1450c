package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetRootCmd creates a fresh root command for testing.
func resetRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hostwatch",
		Short: "Watch the health of a fleet of hosts over ssh",
	}
}

func TestCompletionBashGeneration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, resetRootCmd().GenBashCompletion(&buf))

	output := buf.String()
	assert.Contains(t, output, "# bash completion for hostwatch")
	assert.Contains(t, output, "__hostwatch_debug")
	assert.Contains(t, output, "complete -o default -F __start_hostwatch hostwatch")
}

func TestCompletionZshGeneration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, resetRootCmd().GenZshCompletion(&buf))

	output := buf.String()
	assert.Contains(t, output, "#compdef hostwatch")
	assert.Contains(t, output, "_hostwatch()")
}

func TestCompletionFishGeneration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, resetRootCmd().GenFishCompletion(&buf, true))

	output := buf.String()
	assert.Contains(t, output, "fish completion for hostwatch")
	assert.Contains(t, output, "complete -c hostwatch")
}

func TestCompletionPowershellGeneration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, resetRootCmd().GenPowerShellCompletion(&buf))

	output := buf.String()
	assert.Contains(t, strings.ToLower(output), "powershell completion")
	assert.Contains(t, output, "Register-ArgumentCompleter")
}

func TestCompletionIncludesBuiltinCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, rootCmd.GenBashCompletion(&buf))

	output := buf.String()
	assert.Contains(t, output, "__completeNoDesc", "should use dynamic completion")
	assert.Contains(t, output, "__start_hostwatch")
	assert.Contains(t, output, "_hostwatch_root_command")

	// Commands with local flags get their own functions.
	assert.Contains(t, output, "_hostwatch_watch()")
	assert.Contains(t, output, "_hostwatch_check()")
	assert.Contains(t, output, "_hostwatch_completion()")
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	err := completionCmd.Args(completionCmd, []string{"tcsh"})
	assert.Error(t, err)
}
