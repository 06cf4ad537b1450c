package cli

import (
	"context"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/notify"
	"github.com/rileyhilliard/hostwatch/internal/probe"
	"github.com/rileyhilliard/hostwatch/internal/remote"
	"github.com/rileyhilliard/hostwatch/internal/telemetry"
)

// newRunner builds the subprocess runner used for ssh and ping. Tests swap
// it for a fake.
var newRunner = func() remote.Runner { return remote.ShellRunner{} }

// app holds everything a command needs, built from the loaded config.
type app struct {
	cfg     *config.Config
	cfgPath string
	log     logger.Logger

	store   *credential.Store
	exec    *remote.Executor
	prober  *probe.Prober
	history *monitor.History

	// Alert delivery; nil unless requested.
	sinks    *notify.Multi
	exporter *telemetry.Exporter
	journal  *notify.Journal
	nats     *notify.NATSSink
}

type appOptions struct {
	// alerts wires the evaluator to the log, NATS, journal and metrics sinks.
	alerts bool
	// journal opens the alert journal without the other sinks.
	journal bool
}

// loadApp loads the config and builds the shared components.
func loadApp(opts appOptions) (*app, error) {
	cfg, path, err := config.LoadFound(cfgFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		cfgPath: path,
		log:     newLogger("[hostwatch]"),
		history: monitor.NewHistory(cfg.Monitor.HistorySize),
	}

	a.store, err = credential.Open(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	a.exec = remote.NewExecutor(a.store, cfg.Transport,
		remote.WithRunner(newRunner()),
		remote.WithLogger(a.log))
	a.prober = probe.NewProber(probe.NewIPCache(len(cfg.Targets)+1, cfg.Monitor.RemoteIPTTL), a.log)

	if opts.alerts || opts.journal {
		if cfg.Journal.Path != "" {
			a.journal, err = notify.OpenJournal(cfg.Journal.Path)
			if err != nil {
				return nil, err
			}
		}
	}

	if opts.alerts {
		a.exporter = telemetry.NewExporter()
		a.sinks = notify.NewMulti(a.log, notify.NewLogSink(a.log), a.exporter)
		if a.journal != nil {
			a.sinks.Add(a.journal)
		}
		if cfg.NATS.URL != "" {
			// A broker outage must not stop monitoring; alerts still reach
			// the log and the journal.
			a.nats, err = notify.DialNATS(cfg.NATS.URL, cfg.NATS.Subject, a.log)
			if err != nil {
				a.log.Warn("NATS disabled: %s", errors.Summarize(err))
			} else {
				a.sinks.Add(a.nats)
			}
		}
	}

	return a, nil
}

// monitorOptions are per-command additions to the monitor configuration.
type monitorOptions struct {
	onCycle func([]monitor.TargetState)
}

// newMonitor builds a monitor over the app's components.
func (a *app) newMonitor(opts monitorOptions) *monitor.Monitor {
	var eval *monitor.Evaluator
	if a.sinks != nil {
		eval = monitor.NewEvaluator(a.cfg.Alerts, a.sinks)
	}

	var pinger monitor.Pinger
	if a.cfg.Monitor.MeasureLatency {
		pinger = a.exec
	}

	return monitor.New(monitor.NewSessionChecker(a.exec, a.prober), monitor.Options{
		Policy:    monitor.PolicyFromConfig(a.cfg.Monitor),
		Evaluator: eval,
		History:   a.history,
		Pinger:    pinger,
		OnCycle: func(states []monitor.TargetState) {
			if a.exporter != nil {
				a.exporter.Observe(states)
			}
			if opts.onCycle != nil {
				opts.onCycle(states)
			}
		},
		OnRemove:     a.forgetTarget,
		CheckTimeout: a.cfg.Monitor.CheckTimeout,
		Logger:       a.log,
	})
}

// forgetTarget is the monitor's removal hook: the stored secret is cleared
// and the target disabled, so it is neither polled nor decryptable again.
func (a *app) forgetTarget(t config.Target) {
	if err := config.ClearCredential(a.cfgPath, t.ID); err != nil {
		a.log.Warn("%s: couldn't clear credential: %v", t.ID, err)
	}
	if err := config.SetEnabled(a.cfgPath, t.ID, false); err != nil {
		a.log.Warn("%s: couldn't disable target: %v", t.ID, err)
	}
}

// target looks up a configured target by ID.
func (a *app) target(id string) (config.Target, error) {
	t, ok := a.cfg.FindTarget(id)
	if !ok {
		return config.Target{}, errors.New(errors.ErrConfig,
			"Unknown target '"+id+"'",
			"List configured targets with: hostwatch target list")
	}
	return t, nil
}

// session opens a remote session to one target.
func (a *app) session(ctx context.Context, id string) (*remote.Session, error) {
	t, err := a.target(id)
	if err != nil {
		return nil, err
	}
	return a.exec.Connect(ctx, t)
}

// Close releases sinks that hold connections or files.
func (a *app) Close() {
	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			a.log.Debug("closing NATS: %v", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Debug("closing journal: %v", err)
		}
	}
}
