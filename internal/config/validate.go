package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// targetIDPattern keeps IDs safe for file names, metric labels and NATS subjects.
var targetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but hostwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade hostwatch")
	}

	seen := make(map[string]bool, len(cfg.Targets))
	for i, t := range cfg.Targets {
		if err := ValidateTarget(t); err != nil {
			return err
		}
		if seen[t.ID] {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Target #%d reuses id '%s'", i+1, t.ID),
				"Every target needs a unique id")
		}
		seen[t.ID] = true
	}

	if err := ValidateInterval(cfg.Monitor.Interval); err != nil {
		return err
	}

	if cfg.Monitor.BatteryMultiplier < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("monitor.battery_multiplier must be at least 1, got %g", cfg.Monitor.BatteryMultiplier),
			"Use 1 to poll at the same rate on battery")
	}

	if err := validatePercent("alerts.cpu_percent", cfg.Alerts.CPUPercent); err != nil {
		return err
	}
	if err := validatePercent("alerts.memory_percent", cfg.Alerts.MemoryPercent); err != nil {
		return err
	}
	if cfg.Alerts.DiskFreeGB < 0 {
		return errors.New(errors.ErrConfig,
			"alerts.disk_free_gb can't be negative",
			"Set it to the minimum free space in GB that should not trigger an alert")
	}
	if cfg.Monitor.CheckTimeout < 0 {
		return errors.New(errors.ErrConfig,
			"monitor.check_timeout can't be negative",
			"Use 0 to rely on the ssh connect and keep-alive timeouts")
	}
	if cfg.Alerts.MetricCooldown < 0 {
		return errors.New(errors.ErrConfig,
			"alerts.metric_cooldown can't be negative",
			"Use 0 to alert every cycle")
	}

	return nil
}

// ValidateTarget checks a single target definition.
func ValidateTarget(t Target) error {
	if t.ID == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target '%s' has no id", t.DisplayName()),
			"Add an id like 'web-1' to the target")
	}
	if !targetIDPattern.MatchString(t.ID) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target id '%s' has unsupported characters", t.ID),
			"Use letters, digits, '.', '_' and '-' only")
	}
	if t.Host == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target '%s' has no host", t.ID),
			"Set host to an address, hostname or ~/.ssh/config alias")
	}
	if t.Port < 0 || t.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Target '%s' has invalid port %d", t.ID, t.Port),
			"Ports range from 1 to 65535 (0 means 22)")
	}
	return nil
}

// ValidateInterval enforces the polling interval bounds. Zero means default.
func ValidateInterval(d time.Duration) error {
	if d == 0 {
		return nil
	}
	if d < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too short", d),
			fmt.Sprintf("Minimum interval is %s to avoid overloading targets", MinInterval))
	}
	if d > MaxInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too long", d),
			fmt.Sprintf("Maximum interval is %s", MaxInterval))
	}
	return nil
}

func validatePercent(key string, v float64) error {
	if v <= 0 || v > 100 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must be between 0 and 100, got %g", key, v),
			"Thresholds are percentages")
	}
	return nil
}
