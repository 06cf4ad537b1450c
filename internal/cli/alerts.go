package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/notify"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

var (
	alertsLimit  int
	alertsTarget string
	alertsJSON   bool
	alertsKeep   int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent alerts from the journal",
	Long: `Print the newest alerts recorded in the alert journal (journal.path).

The journal is written by 'hostwatch watch'.`,
	Example: `  hostwatch alerts
  hostwatch alerts --target web-1 --limit 5
  hostwatch alerts prune --keep 1000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsCommand(cmd)
	},
}

var alertsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop all but the newest alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsPruneCommand(cmd)
	},
}

func init() {
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", notify.DefaultRecent, "number of alerts to show")
	alertsCmd.Flags().StringVarP(&alertsTarget, "target", "t", "", "only show alerts of this target")
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "output as JSON")
	alertsPruneCmd.Flags().IntVar(&alertsKeep, "keep", journalKeepRows, "number of alerts to keep")

	alertsCmd.AddCommand(alertsPruneCmd)
	rootCmd.AddCommand(alertsCmd)
}

// openJournal loads the app with the journal, failing when none is configured.
func openJournal() (*app, error) {
	a, err := loadApp(appOptions{journal: true})
	if err != nil {
		return nil, err
	}
	if a.journal == nil {
		return nil, errors.New(errors.ErrConfig,
			"No alert journal configured",
			"Set journal.path in hostwatch.yaml, e.g. ~/.local/share/hostwatch/alerts.db")
	}
	return a, nil
}

func alertsCommand(cmd *cobra.Command) error {
	a, err := openJournal()
	if err != nil {
		return err
	}
	defer a.Close()

	var events []notify.Event
	if alertsTarget != "" {
		events, err = a.journal.RecentForTarget(alertsTarget, alertsLimit)
	} else {
		events, err = a.journal.Recent(alertsLimit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if alertsJSON {
		return WriteJSONSuccess(out, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No alerts recorded")
		return nil
	}
	printEvents(out, events)
	return nil
}

// printEvents writes one line per event, oldest at the bottom.
func printEvents(w io.Writer, events []notify.Event) {
	for _, e := range events {
		symbol := ui.WarningStyle().Render(ui.SymbolWarning)
		switch {
		case e.Recovery():
			symbol = ui.SuccessStyle().Render(ui.SymbolSuccess)
		case e.Connected != nil:
			symbol = ui.ErrorStyle().Render(ui.SymbolFail)
		}
		fmt.Fprintf(w, "%s %s  %-14s %s\n",
			symbol,
			ui.MutedStyle().Render(e.Time.Local().Format(time.DateTime)),
			e.Kind,
			e.Message)
	}
}

func alertsPruneCommand(cmd *cobra.Command) error {
	if alertsKeep <= 0 {
		return errors.New(errors.ErrConfig,
			"--keep must be positive",
			"Pass the number of newest alerts to keep")
	}

	a, err := openJournal()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.journal.Prune(alertsKeep); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Kept the newest %d alert(s)\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), alertsKeep)
	return nil
}
