package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the config file looked up in the working directory.
	ConfigFileName = "hostwatch.yaml"
	// GlobalConfigDir is the directory for the per-user config.
	GlobalConfigDir = ".config/hostwatch"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix namespaces environment overrides (HOSTWATCH_ALERTS_CPU_PERCENT).
	EnvPrefix = "HOSTWATCH"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create hostwatch.yaml, or point at one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. hostwatch.yaml in the current directory
// 3. ~/.config/hostwatch/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadFound finds and loads the config, failing if none exists.
// The resolved path is returned so callers can write credential updates back.
func LoadFound(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return nil, "", errors.New(errors.ErrConfig,
			"No hostwatch config found",
			"Create ./hostwatch.yaml or ~/.config/hostwatch/config.yaml, or pass --config")
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	cfg.Credentials.KeyFile = Expand(cfg.Credentials.KeyFile)
	cfg.Credentials.TempDir = Expand(cfg.Credentials.TempDir)
	cfg.Journal.Path = Expand(cfg.Journal.Path)
	cfg.Transport.SSHConfig = Expand(cfg.Transport.SSHConfig)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers scalar defaults so viper knows every key; this is
// what lets HOSTWATCH_* environment variables override them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("monitor.interval", cfg.Monitor.Interval)
	v.SetDefault("monitor.power_aware", cfg.Monitor.PowerAware)
	v.SetDefault("monitor.battery_multiplier", cfg.Monitor.BatteryMultiplier)
	v.SetDefault("monitor.measure_latency", cfg.Monitor.MeasureLatency)
	v.SetDefault("monitor.history_size", cfg.Monitor.HistorySize)
	v.SetDefault("monitor.remote_ip_ttl", cfg.Monitor.RemoteIPTTL)
	v.SetDefault("monitor.check_timeout", cfg.Monitor.CheckTimeout)

	v.SetDefault("alerts.connectivity", cfg.Alerts.Connectivity)
	v.SetDefault("alerts.performance", cfg.Alerts.Performance)
	v.SetDefault("alerts.cpu_percent", cfg.Alerts.CPUPercent)
	v.SetDefault("alerts.memory_percent", cfg.Alerts.MemoryPercent)
	v.SetDefault("alerts.disk_free_gb", cfg.Alerts.DiskFreeGB)
	v.SetDefault("alerts.metric_cooldown", cfg.Alerts.MetricCooldown)

	v.SetDefault("transport.ssh_binary", cfg.Transport.SSHBinary)
	v.SetDefault("transport.password_helper", cfg.Transport.PasswordHelper)
	v.SetDefault("transport.connect_timeout", cfg.Transport.ConnectTimeout)
	v.SetDefault("transport.server_alive_interval", cfg.Transport.ServerAliveInterval)
	v.SetDefault("transport.server_alive_count_max", cfg.Transport.ServerAliveCountMax)
	v.SetDefault("transport.ssh_config", cfg.Transport.SSHConfig)
	v.SetDefault("transport.ping_binary", cfg.Transport.PingBinary)

	v.SetDefault("credentials.key_file", cfg.Credentials.KeyFile)
	v.SetDefault("credentials.temp_dir", cfg.Credentials.TempDir)

	v.SetDefault("nats.url", cfg.NATS.URL)
	v.SetDefault("nats.subject", cfg.NATS.Subject)
	v.SetDefault("http.listen", cfg.HTTP.Listen)
	v.SetDefault("journal.path", cfg.Journal.Path)
}
