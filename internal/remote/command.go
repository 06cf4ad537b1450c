package remote

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/rileyhilliard/hostwatch/internal/util"
)

// BuildCommandLine composes the sh line that runs cmd on target.
// keyPath must point at the materialized key when auth uses a key.
func BuildCommandLine(transport config.TransportConfig, target config.Target, auth credential.Auth, keyPath, cmd string) string {
	args := []string{transport.SSHBinary}
	args = append(args, hardeningOptions(transport)...)

	if auth.UsesKey() {
		args = append(args, "-o", "BatchMode=yes")
	} else {
		args = append(args,
			"-o", "NumberOfPasswordPrompts=1",
			"-o", "PubkeyAuthentication=no",
		)
	}

	args = append(args, "-p", strconv.Itoa(target.EffectivePort()))

	if auth.UsesKey() && keyPath != "" {
		args = append(args, "-i", keyPath)
	}

	args = append(args, destination(target), cmd)

	line := util.ShellJoin(args...)
	if !auth.UsesKey() {
		line = "SSHPASS=" + util.ShellQuote(auth.Password) + " " +
			util.ShellJoin(transport.PasswordHelper, "-e") + " " + line
	}
	return line
}

func hardeningOptions(transport config.TransportConfig) []string {
	return []string{
		"-o", "ConnectTimeout=" + seconds(transport.ConnectTimeout),
		"-o", "ServerAliveInterval=" + seconds(transport.ServerAliveInterval),
		"-o", fmt.Sprintf("ServerAliveCountMax=%d", transport.ServerAliveCountMax),
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
	}
}

func destination(target config.Target) string {
	if target.User == "" {
		return target.Host
	}
	return target.User + "@" + target.Host
}

// seconds renders a duration as whole seconds for ssh options, rounding up
// so sub-second values never become 0 (which ssh treats as "no timeout").
func seconds(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
