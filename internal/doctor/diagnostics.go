package doctor

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/notify"
	"github.com/rileyhilliard/hostwatch/internal/util"
)

// lookPath finds local binaries. Tests replace it.
var lookPath = exec.LookPath

// Input is what the checks inspect. Config is nil when loading failed.
type Input struct {
	ConfigPath string
	Config     *config.Config
	LoadErr    error
}

// Collect returns every check that applies to in. Only the config check
// runs when the config couldn't be loaded.
func Collect(in Input) []Check {
	checks := []Check{&ConfigCheck{Path: in.ConfigPath, Err: in.LoadErr}}
	cfg := in.Config
	if cfg == nil || in.LoadErr != nil {
		return checks
	}

	checks = append(checks,
		&TargetsCheck{Targets: cfg.Targets},
		&ToolCheck{Binary: cfg.Transport.SSHBinary, Purpose: "connecting to targets", ConfigKey: "transport.ssh_binary", Required: true},
	)
	if usesPasswords(cfg.Targets) {
		checks = append(checks, &ToolCheck{
			Binary: cfg.Transport.PasswordHelper, Purpose: "password logins",
			ConfigKey: "transport.password_helper", Required: true,
		})
	}
	if cfg.Monitor.MeasureLatency {
		checks = append(checks, &ToolCheck{
			Binary: cfg.Transport.PingBinary, Purpose: "latency measurement",
			ConfigKey: "transport.ping_binary",
		})
	}

	checks = append(checks, &KeyFileCheck{Path: cfg.Credentials.KeyFile, HasSecrets: hasSecrets(cfg.Targets)})
	store := openStore(cfg.Credentials)
	for _, t := range cfg.Targets {
		if t.IsEnabled() {
			checks = append(checks, &CredentialCheck{Target: t, Store: store})
		}
	}

	if cfg.Journal.Path != "" {
		checks = append(checks, &JournalCheck{Path: cfg.Journal.Path})
	}
	if cfg.NATS.URL != "" {
		checks = append(checks, &NATSCheck{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
	}
	return checks
}

func usesPasswords(targets []config.Target) bool {
	for _, t := range targets {
		if t.IsEnabled() && t.UsesPassword() {
			return true
		}
	}
	return false
}

func hasSecrets(targets []config.Target) bool {
	for _, t := range targets {
		if t.KeyEnc != "" || t.PasswordEnc != "" {
			return true
		}
	}
	return false
}

// openStore opens the credential store without creating a missing key.
func openStore(cfg config.CredentialConfig) *credential.Store {
	if _, err := os.Stat(cfg.KeyFile); err != nil {
		return nil
	}
	store, err := credential.Open(cfg)
	if err != nil {
		return nil
	}
	return store
}

func suggestionOf(err error) string {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		return hwErr.Suggestion
	}
	return ""
}

// ConfigCheck reports whether the config was found and is valid.
type ConfigCheck struct {
	Path string
	Err  error
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return CategoryConfig }
func (c *ConfigCheck) Fix() error       { return nil }

func (c *ConfigCheck) Run() CheckResult {
	if c.Err != nil {
		return fail(c, errors.Summarize(c.Err), suggestionOf(c.Err))
	}
	return pass(c, "Config: "+c.Path)
}

// TargetsCheck reports how many targets will be polled.
type TargetsCheck struct {
	Targets []config.Target
}

func (c *TargetsCheck) Name() string     { return "targets" }
func (c *TargetsCheck) Category() string { return CategoryConfig }
func (c *TargetsCheck) Fix() error       { return nil }

func (c *TargetsCheck) Run() CheckResult {
	total := len(c.Targets)
	if total == 0 {
		return fail(c, "No targets configured", "Add targets under 'targets:' in hostwatch.yaml")
	}
	enabled := 0
	for _, t := range c.Targets {
		if t.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return warn(c, fmt.Sprintf("All %d %s disabled", total, util.Pluralize(total, "target is", "targets are")),
			"Enable one with: hostwatch target enable <target>")
	}
	return pass(c, fmt.Sprintf("%d %s, %d enabled", total, util.Pluralize(total, "target", "targets"), enabled))
}

// ToolCheck looks for a local binary hostwatch shells out to.
type ToolCheck struct {
	Binary    string
	Purpose   string
	ConfigKey string
	// Required tools fail when missing; optional ones warn.
	Required bool
}

func (c *ToolCheck) Name() string     { return "tool_" + c.Binary }
func (c *ToolCheck) Category() string { return CategoryTools }
func (c *ToolCheck) Fix() error       { return nil }

func (c *ToolCheck) Run() CheckResult {
	path, err := lookPath(c.Binary)
	if err != nil {
		msg := fmt.Sprintf("%s not found (needed for %s)", c.Binary, c.Purpose)
		suggestion := fmt.Sprintf("Install %s, or point %s at it", c.Binary, c.ConfigKey)
		if c.Required {
			return fail(c, msg, suggestion)
		}
		return warn(c, msg, suggestion)
	}
	return pass(c, fmt.Sprintf("%s: %s", c.Binary, path))
}

// KeyFileCheck inspects the local secret key that encrypts credentials.
type KeyFileCheck struct {
	Path string
	// HasSecrets is set when the config holds encrypted credentials, which
	// makes a missing key fatal.
	HasSecrets bool
}

func (c *KeyFileCheck) Name() string     { return "secret_key" }
func (c *KeyFileCheck) Category() string { return CategoryCredentials }

func (c *KeyFileCheck) Run() CheckResult {
	info, err := os.Stat(c.Path)
	if os.IsNotExist(err) {
		if c.HasSecrets {
			return fail(c, "Secret key "+c.Path+" is missing, stored credentials can't be decrypted",
				"Restore the key file, or set every credential again with: hostwatch secret")
		}
		return pass(c, "Secret key will be created on first use")
	}
	if err != nil {
		return fail(c, "Couldn't read "+c.Path+": "+err.Error(), "Check the file permissions")
	}

	if _, err := credential.LoadOrCreateKey(c.Path); err != nil {
		return fail(c, errors.Summarize(err), suggestionOf(err))
	}

	if info.Mode().Perm()&0o077 != 0 {
		r := warn(c, fmt.Sprintf("Secret key is readable by others (mode %04o)", info.Mode().Perm()),
			"Fix: chmod 600 "+c.Path)
		r.Fixable = true
		return r
	}
	return pass(c, "Secret key: "+c.Path)
}

// Fix restricts the key file to its owner.
func (c *KeyFileCheck) Fix() error {
	return os.Chmod(c.Path, 0o600)
}

// CredentialCheck confirms a target's stored secret decrypts. Store is nil
// when the secret key is unusable.
type CredentialCheck struct {
	Target config.Target
	Store  *credential.Store
}

func (c *CredentialCheck) Name() string     { return "credential_" + c.Target.ID }
func (c *CredentialCheck) Category() string { return CategoryCredentials }
func (c *CredentialCheck) Fix() error       { return nil }

func (c *CredentialCheck) Run() CheckResult {
	name := c.Target.DisplayName()
	if c.Target.Credential.Empty() {
		return fail(c, name+": no credential stored",
			"Store one with: hostwatch secret set-key "+c.Target.ID)
	}
	if c.Store == nil {
		return fail(c, name+": can't decrypt without the secret key",
			"Restore the key file or set the credential again")
	}

	auth, err := c.Store.Resolve(c.Target.Credential)
	if err != nil {
		return fail(c, name+": "+errors.Summarize(err),
			"Set it again with: hostwatch secret set-password "+c.Target.ID)
	}
	if auth.UsesKey() {
		if err := credential.ValidatePrivateKey(auth.KeyPEM); err != nil {
			return fail(c, name+": "+errors.Summarize(err), suggestionOf(err))
		}
		return pass(c, name+": private key")
	}
	return pass(c, name+": password")
}

// JournalCheck opens the alert journal.
type JournalCheck struct {
	Path string
}

func (c *JournalCheck) Name() string     { return "journal" }
func (c *JournalCheck) Category() string { return CategoryAlerts }
func (c *JournalCheck) Fix() error       { return nil }

func (c *JournalCheck) Run() CheckResult {
	j, err := notify.OpenJournal(c.Path)
	if err != nil {
		return fail(c, errors.Summarize(err), suggestionOf(err))
	}
	defer func() { _ = j.Close() }()

	recent, err := j.Recent(1)
	if err != nil {
		return fail(c, errors.Summarize(err), "Move the file aside to start a fresh journal")
	}
	msg := "Alert journal: " + c.Path
	if len(recent) > 0 {
		msg += ", last alert " + recent[0].Time.Local().Format("2006-01-02 15:04")
	}
	return pass(c, msg)
}

// NATSCheck connects to the broker once.
type NATSCheck struct {
	URL     string
	Subject string
}

func (c *NATSCheck) Name() string     { return "nats" }
func (c *NATSCheck) Category() string { return CategoryAlerts }
func (c *NATSCheck) Fix() error       { return nil }

func (c *NATSCheck) Run() CheckResult {
	sink, err := notify.DialNATS(c.URL, c.Subject, logger.Noop())
	if err != nil {
		// watch keeps running without NATS, so this is not fatal.
		return warn(c, errors.Summarize(err), suggestionOf(err))
	}
	_ = sink.Close()
	return pass(c, "NATS: "+c.URL)
}
