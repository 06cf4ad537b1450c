package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// Global flags
var (
	cfgFile string
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hostwatch",
	Short: "Watch the health of a fleet of hosts over ssh",
	Long: `hostwatch polls CPU, memory, disk, network and container status from
remote hosts over ssh, raises alerts when thresholds are crossed, and exposes
the results as a terminal dashboard, Prometheus metrics and a JSON API.

Targets and credentials live in hostwatch.yaml. Secrets are stored encrypted;
set them with 'hostwatch secret'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./hostwatch.yaml, then ~/.config/hostwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
}

// Execute runs the root command and exits with the right status.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	// Commands that already reported their outcome only set the status.
	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	fmt.Fprintln(os.Stderr, err.Error())
	if isUnknownCommandError(err) {
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(os.Stderr, "\nRun 'hostwatch --help' for the list of commands (got %q).\n", name)
		}
	}
	os.Exit(1)
}

// newLogger returns the CLI logger for a component prefix.
func newLogger(prefix string) logger.Logger {
	if verbose {
		return logger.NewVerboseLogger(prefix)
	}
	return logger.NewEnvLogger(prefix)
}

// isUnknownCommandError reports whether cobra rejected the command line
// itself rather than a command failing.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "hostwatch"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
