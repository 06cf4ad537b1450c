package remote

import (
	"context"

	"github.com/rileyhilliard/hostwatch/internal/exec"
)

// Result is the captured outcome of one command line.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner executes a composed shell line.
type Runner interface {
	Run(ctx context.Context, line string) (Result, error)
}

// ShellRunner runs lines through /bin/sh -c on the local machine.
// ExitCode is -1 when the process could not report one.
type ShellRunner struct{}

// Run implements Runner.
func (ShellRunner) Run(ctx context.Context, line string) (Result, error) {
	stdout, stderr, code, err := exec.ExecuteLocalCapture(ctx, line, "")
	return Result{Stdout: string(stdout), Stderr: string(stderr), ExitCode: code}, err
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, line string) (Result, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, line string) (Result, error) {
	return f(ctx, line)
}
