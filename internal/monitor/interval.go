package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
)

// DefaultPowerSupplyDir is where Linux exposes AC adapters and batteries.
const DefaultPowerSupplyDir = "/sys/class/power_supply"

// PowerSource reports whether the local machine is running on battery.
type PowerSource interface {
	OnBattery() (bool, error)
}

// SysfsPowerSource reads power_supply entries from sysfs. A machine with no
// entries (desktops, servers, non-Linux) is never on battery.
type SysfsPowerSource struct {
	Dir string
}

// OnBattery reports true when a battery is discharging and no mains or USB
// supply is online.
func (p SysfsPowerSource) OnBattery() (bool, error) {
	dir := p.Dir
	if dir == "" {
		dir = DefaultPowerSupplyDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	discharging := false
	for _, e := range entries {
		base := filepath.Join(dir, e.Name())
		switch readSysfs(base, "type") {
		case "Mains", "USB", "USB_C", "USB_PD":
			if readSysfs(base, "online") == "1" {
				return false, nil
			}
		case "Battery":
			if strings.EqualFold(readSysfs(base, "status"), "Discharging") {
				discharging = true
			}
		}
	}
	return discharging, nil
}

func readSysfs(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// ClampInterval applies the default, floor and ceiling to d.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return config.DefaultInterval
	case d < config.MinInterval:
		return config.MinInterval
	case d > config.MaxInterval:
		return config.MaxInterval
	}
	return d
}

// IntervalPolicy decides how long to wait between cycles.
type IntervalPolicy struct {
	Base              time.Duration
	PowerAware        bool
	BatteryMultiplier float64
	Power             PowerSource
}

// PolicyFromConfig builds a policy reading the default sysfs power source.
func PolicyFromConfig(cfg config.MonitorConfig) IntervalPolicy {
	return IntervalPolicy{
		Base:              cfg.Interval,
		PowerAware:        cfg.PowerAware,
		BatteryMultiplier: cfg.BatteryMultiplier,
		Power:             SysfsPowerSource{},
	}
}

// Effective returns the interval for the next wait. Read errors from the
// power source are treated as mains power.
func (p IntervalPolicy) Effective() time.Duration {
	d := ClampInterval(p.Base)
	if !p.PowerAware || p.Power == nil {
		return d
	}
	onBattery, err := p.Power.OnBattery()
	if err != nil || !onBattery {
		return d
	}
	mult := p.BatteryMultiplier
	if mult < 1 {
		mult = 2
	}
	stretched := time.Duration(float64(d) * mult)
	if stretched > config.MaxInterval || stretched < d {
		return config.MaxInterval
	}
	return stretched
}
