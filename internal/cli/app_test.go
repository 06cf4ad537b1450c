package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/rileyhilliard/hostwatch/internal/remote"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

const cliFixture = `version: 1
# fleet
targets:
  - id: web-1
    name: Web
    host: 10.0.0.5
    user: deploy
  - id: db-1
    host: db.internal
    user: root
    port: 2222
credentials:
  key_file: %[1]s/secret.key
  temp_dir: %[1]s
journal:
  path: %[1]s/alerts.db
monitor:
  measure_latency: false
`

// fakeRemote answers command lines instead of running ssh or ping.
type fakeRemote struct {
	mu     sync.Mutex
	lines  []string
	handle func(line string) remote.Result
}

func (f *fakeRemote) Run(_ context.Context, line string) (remote.Result, error) {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	f.mu.Unlock()

	if f.handle == nil {
		return remote.Result{ExitCode: 255, Stderr: "ssh: connect to host: Connection refused"}, nil
	}
	return f.handle(line), nil
}

func (f *fakeRemote) ran(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// connectedHandler accepts the session marker and hands every other line
// to next.
func connectedHandler(next func(line string) remote.Result) func(string) remote.Result {
	return func(line string) remote.Result {
		if strings.Contains(line, "echo hostwatch-session-ok") {
			return remote.Result{Stdout: "hostwatch-session-ok\n"}
		}
		if next == nil {
			return remote.Result{ExitCode: 127, Stderr: "command not found"}
		}
		return next(line)
	}
}

// setupCLI writes a config into a temp dir and routes subprocesses and
// prompts to fakes. It returns the config path.
func setupCLI(t *testing.T, fake *fakeRemote) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(cliFixture, dir)), 0600))

	prevRunner, prevPrompter := newRunner, newPrompter
	newRunner = func() remote.Runner { return fake }
	newPrompter = func() ui.Prompter { return ui.Prompter{In: strings.NewReader("")} }
	t.Cleanup(func() {
		newRunner, newPrompter = prevRunner, prevPrompter
	})
	return path
}

// pipeInput makes prompts read from s as if it were piped stdin.
func pipeInput(s string) {
	newPrompter = func() ui.Prompter { return ui.Prompter{In: strings.NewReader(s)} }
}

// runCLI executes the root command with fresh flag values.
func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags puts every flag back to its default; cobra keeps values
// between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func loadTarget(t *testing.T, path, id string) config.Target {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	tgt, ok := cfg.FindTarget(id)
	require.True(t, ok, "target %s missing", id)
	return tgt
}

func decrypt(t *testing.T, path, blob string) string {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	store, err := credential.Open(cfg.Credentials)
	require.NoError(t, err)
	plain, err := store.Decrypt(blob)
	require.NoError(t, err)
	return plain
}

func TestLoadApp(t *testing.T) {
	path := setupCLI(t, &fakeRemote{})
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })

	t.Run("without alerts", func(t *testing.T) {
		a, err := loadApp(appOptions{})
		require.NoError(t, err)
		defer a.Close()

		assert.Equal(t, path, a.cfgPath)
		assert.NotNil(t, a.store)
		assert.NotNil(t, a.exec)
		assert.Nil(t, a.sinks)
		assert.Nil(t, a.journal)
		assert.Nil(t, a.alertSource())
	})

	t.Run("with alerts", func(t *testing.T) {
		a, err := loadApp(appOptions{alerts: true})
		require.NoError(t, err)
		defer a.Close()

		require.NotNil(t, a.sinks)
		assert.NotNil(t, a.journal)
		assert.NotNil(t, a.exporter)
		assert.NotNil(t, a.alertSource())
		// log, exporter and journal; no NATS URL configured.
		assert.Equal(t, 3, a.sinks.Len())
	})

	t.Run("checks are unbounded unless configured", func(t *testing.T) {
		a, err := loadApp(appOptions{})
		require.NoError(t, err)
		assert.Zero(t, a.cfg.Monitor.CheckTimeout)
	})
}

func TestApp_UnknownTarget(t *testing.T) {
	path := setupCLI(t, &fakeRemote{})
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })

	a, err := loadApp(appOptions{})
	require.NoError(t, err)

	_, err = a.target("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown target 'nope'")
}

func TestSelectTargets(t *testing.T) {
	cfg := &config.Config{Targets: []config.Target{
		{ID: "a", Host: "a.local"},
		{ID: "b", Host: "b.local"},
	}}

	tests := []struct {
		name    string
		ids     []string
		want    []string
		wantErr string
	}{
		{name: "all by default", want: []string{"a", "b"}},
		{name: "subset keeps argument order", ids: []string{"b", "a"}, want: []string{"b", "a"}},
		{name: "duplicates collapse", ids: []string{"a", "a"}, want: []string{"a"}},
		{name: "unknown id", ids: []string{"c"}, wantErr: "Unknown target 'c'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectTargets(cfg, tt.ids)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, tgt := range got {
				ids[i] = tgt.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	t.Run("empty config", func(t *testing.T) {
		_, err := selectTargets(&config.Config{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No targets configured")
	})
}
