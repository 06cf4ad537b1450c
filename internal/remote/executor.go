package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// connectMarker is echoed by Connect to prove the session reached a shell.
const connectMarker = "hostwatch-session-ok"

// sshpassAuthExit is the sshpass exit status for a rejected password.
const sshpassAuthExit = 5

// sshFailureExit is the status ssh itself uses for connection errors.
const sshFailureExit = 255

// Credentials decrypts target credentials and materializes keys.
// *credential.Store satisfies it.
type Credentials interface {
	Resolve(cred config.Credential) (credential.Auth, error)
	MaterializeKeyFile(plaintext string) (string, error)
}

// Executor builds and runs ssh command lines for targets.
type Executor struct {
	creds     Credentials
	transport config.TransportConfig
	runner    Runner
	aliases   *AliasResolver
	log       logger.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.log = logger.With(l, "[remote]") }
}

// WithAliasResolver sets the ssh config alias resolver. Nil disables
// alias resolution.
func WithAliasResolver(r *AliasResolver) Option {
	return func(e *Executor) { e.aliases = r }
}

// NewExecutor creates an executor. Unset transport fields fall back to the
// config defaults.
func NewExecutor(creds Credentials, transport config.TransportConfig, opts ...Option) *Executor {
	defaults := config.DefaultConfig().Transport
	if transport.SSHBinary == "" {
		transport.SSHBinary = defaults.SSHBinary
	}
	if transport.PasswordHelper == "" {
		transport.PasswordHelper = defaults.PasswordHelper
	}
	if transport.ConnectTimeout == 0 {
		transport.ConnectTimeout = defaults.ConnectTimeout
	}
	if transport.ServerAliveInterval == 0 {
		transport.ServerAliveInterval = defaults.ServerAliveInterval
	}
	if transport.ServerAliveCountMax == 0 {
		transport.ServerAliveCountMax = defaults.ServerAliveCountMax
	}
	if transport.PingBinary == "" {
		transport.PingBinary = defaults.PingBinary
	}

	e := &Executor{
		creds:     creds,
		transport: transport,
		runner:    ShellRunner{},
		aliases:   NewAliasResolver(transport.SSHConfig),
		log:       logger.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one command on target. Key material is materialized for the
// call and removed on every return path.
func (e *Executor) Execute(ctx context.Context, target config.Target, cmd string) (Result, error) {
	s, err := e.open(target)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()

	return s.Run(ctx, cmd)
}

// Connect opens a logical session: credentials are resolved, the key file
// materialized, and a marker echo must come back with exit 0. On failure
// nothing is left on disk.
func (e *Executor) Connect(ctx context.Context, target config.Target) (*Session, error) {
	s, err := e.open(target)
	if err != nil {
		return nil, err
	}

	res, err := s.Run(ctx, "echo "+connectMarker)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !res.OK() || !strings.Contains(res.Stdout, connectMarker) {
		s.Close()
		return nil, classifyConnectFailure(s.target, s.auth, res)
	}

	e.log.Debug("connected to %s (%s)", target.ID, s.target.Host)
	return s, nil
}

func (e *Executor) open(target config.Target) (*Session, error) {
	auth, err := e.creds.Resolve(target.Credential)
	if err != nil {
		return nil, err
	}

	s := &Session{
		exec:   e,
		target: e.aliases.Resolve(target),
		auth:   auth,
	}

	if auth.UsesKey() {
		path, err := e.creds.MaterializeKeyFile(auth.KeyPEM)
		if err != nil {
			return nil, err
		}
		s.keyPath = path
	}

	return s, nil
}

// Session is a connected target. It is safe for concurrent use; Close is
// idempotent.
type Session struct {
	exec   *Executor
	target config.Target
	auth   credential.Auth

	mu      sync.Mutex
	keyPath string
	closed  bool
}

// Target returns the resolved target the session talks to.
func (s *Session) Target() config.Target {
	return s.target
}

// Run executes cmd on the session's target. A non-zero exit is reported in
// the Result, not as an error.
func (s *Session) Run(ctx context.Context, cmd string) (Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, errors.New(errors.ErrConnect,
			fmt.Sprintf("Session to %s is closed", s.target.ID),
			"Connect again before running commands")
	}
	line := BuildCommandLine(s.exec.transport, s.target, s.auth, s.keyPath, cmd)
	s.mu.Unlock()

	s.exec.log.Debug("%s$ %s", s.target.ID, cmd)
	return s.exec.runner.Run(ctx, line)
}

// Close ends the session and removes its key file.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	path := s.keyPath
	s.keyPath = ""
	s.auth = credential.Auth{}
	return credential.Cleanup(path)
}

// classifyConnectFailure maps a failed connect probe to AUTH or CONNECT.
func classifyConnectFailure(target config.Target, auth credential.Auth, res Result) error {
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = fmt.Sprintf("exit code %d", res.ExitCode)
	}
	cause := fmt.Errorf("%s", detail)

	if looksLikeAuthFailure(auth, res) {
		suggestion := "Check the stored key with: hostwatch secret set-key " + target.ID
		if !auth.UsesKey() {
			suggestion = "Check the stored password with: hostwatch secret set-password " + target.ID
		}
		return errors.WrapWithCode(cause, errors.ErrAuth,
			fmt.Sprintf("Authentication to %s failed", target.DisplayName()),
			suggestion)
	}

	if res.OK() {
		return errors.New(errors.ErrConnect,
			fmt.Sprintf("%s answered, but not with the expected marker", target.DisplayName()),
			"A login banner or shell profile may be writing to stdout")
	}

	return errors.WrapWithCode(cause, errors.ErrConnect,
		fmt.Sprintf("Couldn't connect to %s", target.DisplayName()),
		"Make sure the host is reachable: ssh -p "+fmt.Sprint(target.EffectivePort())+" "+destination(target))
}

func looksLikeAuthFailure(auth credential.Auth, res Result) bool {
	if !auth.UsesKey() && res.ExitCode == sshpassAuthExit {
		return true
	}
	if res.ExitCode != sshFailureExit {
		return false
	}
	stderr := strings.ToLower(res.Stderr)
	return strings.Contains(stderr, "permission denied") ||
		strings.Contains(stderr, "authentication failed")
}
