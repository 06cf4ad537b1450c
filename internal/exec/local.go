// Package exec runs local shell command lines.
package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Shell interprets command lines. It is fixed to POSIX sh so that env
// prefixes and the quoting produced by util.ShellQuote behave the same
// regardless of the user's login shell.
const Shell = "/bin/sh"

// NoExitCode is reported when the process never produced an exit status.
const NoExitCode = -1

// ExecuteLocalCapture runs a command line locally and captures all output.
// Returns stdout, stderr, the exit code, and an error only when the process
// could not be run at all. A non-zero exit is not an error.
func ExecuteLocalCapture(ctx context.Context, cmd string, workDir string) (stdout, stderr []byte, exitCode int, err error) {
	command := exec.CommandContext(ctx, Shell, "-c", cmd)

	if workDir != "" {
		command.Dir = workDir
	}

	var outBuf, errBuf bytes.Buffer
	command.Stdout = &outBuf
	command.Stderr = &errBuf

	runErr := command.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				// Killed by a signal (including context cancellation).
				code = NoExitCode
			}
			return outBuf.Bytes(), errBuf.Bytes(), code, nil
		}
		return outBuf.Bytes(), errBuf.Bytes(), NoExitCode, errors.WrapWithCode(runErr, errors.ErrExec,
			"Failed to execute local command",
			"Check that "+Shell+" exists and is executable")
	}

	return outBuf.Bytes(), errBuf.Bytes(), 0, nil
}
