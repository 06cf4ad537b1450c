package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for hostwatch.

Examples:
  # Bash
  hostwatch completion bash > /etc/bash_completion.d/hostwatch

  # Zsh
  hostwatch completion zsh > "${fpath[1]}/_hostwatch"

  # Fish
  hostwatch completion fish > ~/.config/fish/completions/hostwatch.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeTargetIDs offers configured target IDs for the first argument.
func completeTargetIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return targetCompletions(nil), cobra.ShellCompDirectiveNoFileComp
}

// completeTargetList offers every target ID not already on the command line.
func completeTargetList(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return targetCompletions(args), cobra.ShellCompDirectiveNoFileComp
}

func targetCompletions(exclude []string) []string {
	cfg, _, err := config.LoadFound(cfgFile)
	if err != nil {
		return nil
	}
	var ids []string
	for _, t := range cfg.Targets {
		if slices.Contains(exclude, t.ID) {
			continue
		}
		ids = append(ids, t.ID+"\t"+t.DisplayName())
	}
	return ids
}
