package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/telemetry"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

var (
	checkJSON   bool
	checkSample time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check [target...]",
	Short: "Poll targets once and print their status",
	Long: `Connect to each target, collect one round of metrics and print the result.

CPU usage and network throughput are rates, so check takes two samples
--sample apart. Pass --sample 0 for a single pass without those figures.

Exits with status 1 when any enabled target is unreachable.`,
	Example: `  hostwatch check
  hostwatch check web-1
  hostwatch check --json | jq '.data[] | {id, connected}'`,
	ValidArgsFunction: completeTargetList,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkCommand(cmd, args)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output as JSON")
	checkCmd.Flags().DurationVar(&checkSample, "sample", time.Second, "gap between the two samples used for CPU and network rates")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	targets, err := selectTargets(a.cfg, args)
	if err != nil {
		return err
	}

	mon := a.newMonitor(monitorOptions{})
	mon.SetTargets(targets)

	states, err := sampleTwice(cmd.Context(), mon, checkSample)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		views := make([]telemetry.TargetView, 0, len(states))
		for _, st := range states {
			views = append(views, telemetry.NewTargetView(st))
		}
		if err := WriteJSONSuccess(out, views); err != nil {
			return err
		}
	} else if len(args) == 1 {
		fmt.Fprint(out, ui.RenderTargetDetail(states[0], a.history, time.Now()))
	} else {
		fmt.Fprint(out, ui.RenderTargetTable(states, ui.TableOptions{History: a.history, Selected: -1}))
	}

	if offline := countOffline(states); offline > 0 {
		if !checkJSON {
			fmt.Fprintf(out, "\n%s %d of %d target(s) unreachable\n",
				ui.ErrorStyle().Render(ui.SymbolFail), offline, len(states))
		}
		return errors.NewExitError(1)
	}
	return nil
}

// sampleTwice runs a cycle, waits gap and runs another so rates have a
// baseline. The second cycle is skipped when nothing connected.
func sampleTwice(ctx context.Context, mon *monitor.Monitor, gap time.Duration) ([]monitor.TargetState, error) {
	states := mon.RunOnce(ctx)
	if gap <= 0 || countConnected(states) == 0 {
		return states, ctx.Err()
	}

	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return mon.RunOnce(ctx), ctx.Err()
}

func countConnected(states []monitor.TargetState) int {
	n := 0
	for _, st := range states {
		if st.Connected {
			n++
		}
	}
	return n
}

// countOffline counts enabled targets whose last check failed.
func countOffline(states []monitor.TargetState) int {
	n := 0
	for _, st := range states {
		if st.Target.IsEnabled() && !st.Connected {
			n++
		}
	}
	return n
}
