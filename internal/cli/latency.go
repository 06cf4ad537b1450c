package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

var latencyJSON bool

var latencyCmd = &cobra.Command{
	Use:   "latency [target...]",
	Short: "Ping targets from this machine",
	Long: `Send one ping to each target from the local machine and print the
round trip. This does not use ssh, so it works without credentials.`,
	ValidArgsFunction: completeTargetList,
	RunE: func(cmd *cobra.Command, args []string) error {
		return latencyCommand(cmd, args)
	},
}

func init() {
	latencyCmd.Flags().BoolVar(&latencyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(latencyCmd)
}

// LatencyResult is one ping measurement.
type LatencyResult struct {
	ID        string         `json:"id"`
	Host      string         `json:"host"`
	Reachable bool           `json:"reachable"`
	RTT       *time.Duration `json:"-"`
	RTTMS     *float64       `json:"rtt_ms,omitempty"`
}

func latencyCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}

	targets, err := selectTargets(a.cfg, args)
	if err != nil {
		return err
	}

	results := measureAll(cmd, a, targets)

	out := cmd.OutOrStdout()
	if latencyJSON {
		return WriteJSONSuccess(out, results)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		symbol := ui.SymbolFail
		if r.Reachable {
			symbol = ui.SymbolSuccess
		}
		rows = append(rows, []string{symbol + " " + r.ID, r.Host, ui.FormatLatency(r.RTT)})
	}
	fmt.Fprint(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "TARGET", Width: 24},
		{Title: "HOST", Width: 32},
		{Title: "LATENCY", Width: 10},
	}, rows))
	return nil
}

// measureAll pings every target concurrently and returns the results in
// target order.
func measureAll(cmd *cobra.Command, a *app, targets []config.Target) []LatencyResult {
	results := make([]LatencyResult, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t config.Target) {
			defer wg.Done()
			r := LatencyResult{ID: t.ID, Host: t.Host}
			if rtt, ok := a.exec.MeasureLatency(cmd.Context(), t.Host); ok {
				ms := float64(rtt) / float64(time.Millisecond)
				r.Reachable = true
				r.RTT = &rtt
				r.RTTMS = &ms
			}
			results[i] = r
		}(i, t)
	}
	wg.Wait()
	return results
}
