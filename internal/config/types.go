package config

import (
	"net"
	"strconv"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Polling interval bounds. Anything below the floor risks overloading the
// targets or the local network; the ceiling keeps alerts meaningful.
const (
	DefaultInterval = 60 * time.Second
	MinInterval     = 10 * time.Second
	MaxInterval     = time.Hour
)

// Config represents the complete hostwatch.yaml configuration file.
type Config struct {
	Version     int              `yaml:"version" mapstructure:"version"`
	Targets     []Target         `yaml:"targets" mapstructure:"targets"`
	Monitor     MonitorConfig    `yaml:"monitor" mapstructure:"monitor"`
	Alerts      AlertConfig      `yaml:"alerts" mapstructure:"alerts"`
	Transport   TransportConfig  `yaml:"transport" mapstructure:"transport"`
	Credentials CredentialConfig `yaml:"credentials" mapstructure:"credentials"`
	NATS        NATSConfig       `yaml:"nats" mapstructure:"nats"`
	HTTP        HTTPConfig       `yaml:"http" mapstructure:"http"`
	Journal     JournalConfig    `yaml:"journal" mapstructure:"journal"`
}

// Target is a remote host to monitor.
type Target struct {
	// ID is the stable identifier. Credentials and state are keyed by it.
	ID string `yaml:"id" mapstructure:"id"`

	// Name is shown in output; defaults to ID.
	Name string `yaml:"name" mapstructure:"name"`

	// Host is an address, hostname, or ~/.ssh/config alias.
	Host string `yaml:"host" mapstructure:"host"`

	// Port defaults to 22.
	Port int `yaml:"port" mapstructure:"port"`

	User string `yaml:"user" mapstructure:"user"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty" mapstructure:"enabled"`

	Credential `yaml:",inline" mapstructure:",squash"`
}

// Credential is the encrypted authentication reference of a target.
// Both blobs are base64 AES-GCM ciphertext; the key takes priority.
type Credential struct {
	PasswordEnc string `yaml:"password_enc,omitempty" mapstructure:"password_enc"`
	KeyEnc      string `yaml:"key_enc,omitempty" mapstructure:"key_enc"`
	HasPassword bool   `yaml:"has_password,omitempty" mapstructure:"has_password"`
	HasKey      bool   `yaml:"has_key,omitempty" mapstructure:"has_key"`
}

// UsesKey reports whether key authentication applies.
func (c Credential) UsesKey() bool {
	return c.HasKey && c.KeyEnc != ""
}

// UsesPassword reports whether password authentication applies.
// A stored key always wins.
func (c Credential) UsesPassword() bool {
	return !c.UsesKey() && c.HasPassword && c.PasswordEnc != ""
}

// Empty reports whether no usable credential is stored.
func (c Credential) Empty() bool {
	return !c.UsesKey() && !c.UsesPassword()
}

// IsEnabled reports whether the target should be polled.
func (t Target) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// DisplayName returns Name, falling back to ID.
func (t Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// EffectivePort returns Port, or 22 when unset.
func (t Target) EffectivePort() int {
	if t.Port == 0 {
		return 22
	}
	return t.Port
}

// Address returns host:port.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.EffectivePort()))
}

// MonitorConfig controls the polling loop.
type MonitorConfig struct {
	// Interval between cycles, clamped to [MinInterval, MaxInterval].
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// PowerAware stretches the interval while the local machine runs on battery.
	PowerAware bool `yaml:"power_aware" mapstructure:"power_aware"`

	// BatteryMultiplier is applied to Interval on battery power.
	BatteryMultiplier float64 `yaml:"battery_multiplier" mapstructure:"battery_multiplier"`

	// MeasureLatency enables the local ping measurement per cycle.
	MeasureLatency bool `yaml:"measure_latency" mapstructure:"measure_latency"`

	// HistorySize is the number of samples kept per target for sparklines.
	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	// RemoteIPTTL controls how long a discovered public address is reused.
	RemoteIPTTL time.Duration `yaml:"remote_ip_ttl" mapstructure:"remote_ip_ttl"`

	// CheckTimeout bounds one target check. Zero leaves hung sessions to the
	// transport's connect and keep-alive timeouts.
	CheckTimeout time.Duration `yaml:"check_timeout" mapstructure:"check_timeout"`
}

// AlertConfig controls the threshold evaluator.
type AlertConfig struct {
	Connectivity bool `yaml:"connectivity" mapstructure:"connectivity"`
	Performance  bool `yaml:"performance" mapstructure:"performance"`

	// CPUPercent fires when CPU usage exceeds it.
	CPUPercent float64 `yaml:"cpu_percent" mapstructure:"cpu_percent"`

	// MemoryPercent fires when memory usage exceeds it.
	MemoryPercent float64 `yaml:"memory_percent" mapstructure:"memory_percent"`

	// DiskFreeGB fires when available disk space falls below it.
	DiskFreeGB float64 `yaml:"disk_free_gb" mapstructure:"disk_free_gb"`

	// MetricCooldown suppresses repeated metric alerts per target and kind.
	// Zero keeps the level-triggered behavior of firing every cycle.
	MetricCooldown time.Duration `yaml:"metric_cooldown" mapstructure:"metric_cooldown"`
}

// TransportConfig controls how the ssh command line is built.
type TransportConfig struct {
	SSHBinary           string        `yaml:"ssh_binary" mapstructure:"ssh_binary"`
	PasswordHelper      string        `yaml:"password_helper" mapstructure:"password_helper"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	ServerAliveInterval time.Duration `yaml:"server_alive_interval" mapstructure:"server_alive_interval"`
	ServerAliveCountMax int           `yaml:"server_alive_count_max" mapstructure:"server_alive_count_max"`

	// SSHConfig is consulted to resolve aliases; empty means ~/.ssh/config.
	SSHConfig string `yaml:"ssh_config" mapstructure:"ssh_config"`

	PingBinary string `yaml:"ping_binary" mapstructure:"ping_binary"`
}

// CredentialConfig locates the process key and temporary key files.
type CredentialConfig struct {
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// NATSConfig enables publishing alerts to NATS when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// HTTPConfig enables the status and metrics endpoint when Listen is set.
type HTTPConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// JournalConfig enables the SQLite alert journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Monitor: MonitorConfig{
			Interval:          DefaultInterval,
			PowerAware:        true,
			BatteryMultiplier: 2,
			MeasureLatency:    true,
			HistorySize:       120,
			RemoteIPTTL:       10 * time.Minute,
		},
		Alerts: AlertConfig{
			Connectivity:  true,
			Performance:   true,
			CPUPercent:    90,
			MemoryPercent: 90,
			DiskFreeGB:    10,
		},
		Transport: TransportConfig{
			SSHBinary:           "ssh",
			PasswordHelper:      "sshpass",
			ConnectTimeout:      10 * time.Second,
			ServerAliveInterval: 5 * time.Second,
			ServerAliveCountMax: 2,
			PingBinary:          "ping",
		},
		Credentials: CredentialConfig{
			KeyFile: "~/.config/hostwatch/secret.key",
		},
		NATS: NATSConfig{
			Subject: "hostwatch.alerts",
		},
	}
}

// EnabledTargets returns the targets that should be polled, in config order.
func (c *Config) EnabledTargets() []Target {
	var out []Target
	for _, t := range c.Targets {
		if t.IsEnabled() {
			out = append(out, t)
		}
	}
	return out
}

// FindTarget returns the target with the given ID.
func (c *Config) FindTarget(id string) (Target, bool) {
	for _, t := range c.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}
