package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/telemetry"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// journalKeepRows bounds the alert journal; it is pruned when watch starts.
const journalKeepRows = 10000

var (
	watchInterval time.Duration
	watchTUI      bool
	watchListen   string
	watchLogFile  string
	watchReload   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [target...]",
	Short: "Poll targets continuously and raise alerts",
	Long: `Poll the configured targets until interrupted.

Every cycle collects CPU, memory, disk, network and container data from each
enabled target. Threshold and connectivity alerts go to the log, the alert
journal, NATS and the Prometheus exporter, depending on the config.

With --tui an interactive dashboard replaces the plain table output. When
http.listen is set (or --listen is given) health, metrics and a JSON API are
served while watching.`,
	Example: `  hostwatch watch
  hostwatch watch --tui
  hostwatch watch web-1 db-1 --interval 30s
  hostwatch watch --listen :9273`,
	ValidArgsFunction: completeTargetList,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd, args)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "polling interval (overrides monitor.interval)")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "show the interactive dashboard")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "serve health, metrics and the API on this address (overrides http.listen)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "write logs to this file while the dashboard is open")
	watchCmd.Flags().BoolVar(&watchReload, "reload", true, "apply config file changes without restarting")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(cmd *cobra.Command, args []string) error {
	if err := config.ValidateInterval(watchInterval); err != nil {
		return err
	}

	a, err := loadApp(appOptions{alerts: true})
	if err != nil {
		return err
	}
	defer a.Close()

	targets, err := selectTargets(a.cfg, args)
	if err != nil {
		return err
	}
	if watchInterval > 0 {
		a.cfg.Monitor.Interval = watchInterval
	}

	if a.journal != nil {
		if err := a.journal.Prune(journalKeepRows); err != nil {
			a.log.Warn("Couldn't prune alert journal: %s", errors.Summarize(err))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &watcher{app: a, targets: targets, all: len(args) == 0, out: cmd.OutOrStdout()}
	if watchTUI {
		return w.runDashboard(ctx)
	}
	return w.runPlain(ctx)
}

// watcher runs one watch session.
type watcher struct {
	app     *app
	targets []config.Target
	// all follows the whole config, including targets added later.
	all bool
	out io.Writer
}

// runPlain prints the fleet table after every cycle.
func (w *watcher) runPlain(ctx context.Context) error {
	mon := w.app.newMonitor(monitorOptions{
		onCycle: func(states []monitor.TargetState) {
			w.printCycle(states, time.Now())
		},
	})
	return w.run(ctx, mon, func() error {
		<-ctx.Done()
		return nil
	})
}

func (w *watcher) printCycle(states []monitor.TargetState, at time.Time) {
	online := 0
	for _, st := range states {
		if st.Connected {
			online++
		}
	}
	fmt.Fprintf(w.out, "\n%s  %d/%d online\n", ui.MutedStyle().Render(at.Format(time.TimeOnly)), online, len(states))
	fmt.Fprint(w.out, ui.RenderTargetTable(states, ui.TableOptions{
		History:  w.app.history,
		Selected: -1,
	}))
}

// runDashboard hands the terminal to the bubbletea dashboard until the user
// quits or ctx is canceled.
func (w *watcher) runDashboard(ctx context.Context) error {
	restoreLog, err := redirectLogs(watchLogFile)
	if err != nil {
		return err
	}
	defer restoreLog()

	var p *tea.Program
	mon := w.app.newMonitor(monitorOptions{
		onCycle: func(states []monitor.TargetState) {
			p.Send(ui.StatesMsg{States: states, At: time.Now()})
		},
	})
	mon.SetTargets(w.targets)

	dash := ui.NewDashboard(ui.DashboardOptions{
		History:  w.app.history,
		Interval: mon.Interval,
		Refresh:  func() { mon.RunOnce(ctx) },
		Initial:  mon.Snapshot(),
	})
	p = tea.NewProgram(dash, tea.WithAltScreen(), tea.WithContext(ctx))

	return w.run(ctx, mon, func() error {
		_, err := p.Run()
		if err != nil && ctx.Err() != nil {
			// Interrupted by a signal, not a dashboard failure.
			return nil
		}
		return err
	})
}

// run starts the optional HTTP server, the config reloader and the monitor,
// then blocks in wait.
func (w *watcher) run(ctx context.Context, mon *monitor.Monitor, wait func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	if listen := w.listenAddr(); listen != "" {
		srv := telemetry.NewServer(mon, w.app.alertSource(), w.app.exporter, w.app.log)
		go func() { serveErr <- srv.ListenAndServe(ctx, listen) }()
	}

	if watchReload {
		config.Watch(w.app.cfgPath, func(cfg *config.Config) {
			w.reload(mon, cfg)
		}, func(err error) {
			w.app.log.Warn("Ignoring config change: %s", errors.Summarize(err))
		})
	}

	mon.Start(ctx, w.targets)
	defer mon.Stop()

	done := make(chan error, 1)
	go func() { done <- wait() }()

	select {
	case err := <-done:
		return err
	case err := <-serveErr:
		if err != nil {
			return err
		}
		return <-done
	}
}

// reload applies an edited config to the running monitor. Targets keep their
// state when their ID survives the edit.
func (w *watcher) reload(mon *monitor.Monitor, cfg *config.Config) {
	var ids []string
	if !w.all {
		for _, t := range w.targets {
			ids = append(ids, t.ID)
		}
	}

	targets, err := selectTargets(cfg, ids)
	if err != nil {
		w.app.log.Warn("Ignoring config change: %s", errors.Summarize(err))
		return
	}

	interval := cfg.Monitor.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}
	mon.SetTargets(targets)
	mon.SetInterval(interval)
	w.targets = targets
	w.app.log.Info("Config reloaded: %d target(s), every %s", len(targets), mon.Interval())
}

func (w *watcher) listenAddr() string {
	if watchListen != "" {
		return watchListen
	}
	return w.app.cfg.HTTP.Listen
}

// alertSource returns the journal as an API alert source, or a nil interface
// when no journal is configured.
func (a *app) alertSource() telemetry.AlertSource {
	if a.journal == nil {
		return nil
	}
	return a.journal
}

// redirectLogs moves the standard logger off the terminal while the
// dashboard owns it. The returned func restores the previous output.
func redirectLogs(path string) (func(), error) {
	prev := log.Writer()
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(prev) }, nil
	}

	f, err := tea.LogToFile(path, "hostwatch")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't open log file "+path,
			"Check the directory exists and is writable")
	}
	return func() {
		log.SetOutput(prev)
		_ = f.Close()
	}, nil
}

// selectTargets returns the targets named by ids, or every configured target
// when ids is empty.
func selectTargets(cfg *config.Config, ids []string) ([]config.Target, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No targets configured",
			"Add targets to the targets: list in hostwatch.yaml")
	}
	if len(ids) == 0 {
		return cfg.Targets, nil
	}

	out := make([]config.Target, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, ok := cfg.FindTarget(id)
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				"Unknown target '"+id+"'",
				"List configured targets with: hostwatch target list")
		}
		out = append(out, t)
	}
	return out, nil
}
