package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/remote"
)

// Execer runs a command on one target. *remote.Session satisfies it.
type Execer interface {
	Run(ctx context.Context, cmd string) (remote.Result, error)
}

// Strategy is one way of obtaining a T.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context, ex Execer) (T, error)
}

// Chain tries strategies in order and returns the first success along with
// the name of the strategy that produced it. When every strategy fails the
// error is RESPONSE and lists each attempt.
func Chain[T any](ctx context.Context, ex Execer, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	attempts := make([]string, 0, len(strategies))

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", errors.WrapWithCode(err, errors.ErrConnect,
				"Collection was canceled", "")
		}

		v, err := s.Run(ctx, ex)
		if err == nil {
			return v, s.Name, nil
		}
		attempts = append(attempts, s.Name+": "+errors.Summarize(err))
	}

	return zero, "", errors.WrapWithCode(
		fmt.Errorf("%s", strings.Join(attempts, "; ")),
		errors.ErrResponse,
		fmt.Sprintf("All %d strategies failed", len(strategies)),
		"The target may be missing the tools these commands rely on")
}

// runOutput runs cmd and returns stdout when it exits zero.
func runOutput(ctx context.Context, ex Execer, cmd string) (string, error) {
	res, err := ex.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return "", errors.WrapWithCode(fmt.Errorf("%s", detail), errors.ErrCommand,
			fmt.Sprintf("%q failed", firstWord(cmd)), "")
	}
	return res.Stdout, nil
}

// commandStrategy builds a strategy that runs cmd and hands stdout to parse.
func commandStrategy[T any](name, cmd string, parse func(string) (T, error)) Strategy[T] {
	return Strategy[T]{
		Name: name,
		Run: func(ctx context.Context, ex Execer) (T, error) {
			out, err := runOutput(ctx, ex, cmd)
			if err != nil {
				var zero T
				return zero, err
			}
			return parse(out)
		},
	}
}

func responseError(format string, args ...interface{}) error {
	return errors.New(errors.ErrResponse, fmt.Sprintf(format, args...), "")
}

func firstWord(cmd string) string {
	if f := strings.Fields(cmd); len(f) > 0 {
		return f[0]
	}
	return cmd
}
