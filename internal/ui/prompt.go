package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// maxSecretBytes bounds what is read from a piped stdin.
const maxSecretBytes = 64 << 10

// Prompter asks for input with huh forms when attached to a terminal and
// falls back to plain reads when input is piped.
type Prompter struct {
	In          io.Reader
	Interactive bool
}

// NewPrompter returns a prompter over f, interactive when f is a terminal.
func NewPrompter(f *os.File) Prompter {
	return Prompter{In: f, Interactive: term.IsTerminal(int(f.Fd()))}
}

// Password asks for a password. Piped input keeps everything except the
// trailing line break.
func (p Prompter) Password(title string) (string, error) {
	if !p.Interactive {
		raw, err := p.readAll()
		if err != nil {
			return "", err
		}
		pw := strings.TrimRight(raw, "\r\n")
		if pw == "" {
			return "", errors.New(errors.ErrConfig,
				"No password on stdin",
				"Pipe the password in: printf '%s' \"$PW\" | hostwatch secret set-password <target>")
		}
		return pw, nil
	}

	var pw string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password can't be empty")
					}
					return nil
				}).
				Value(&pw),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your input",
			"Try again, or pipe the password on stdin")
	}
	return pw, nil
}

// PrivateKey asks for a PEM private key. validate runs on the pasted text
// before the form accepts it.
func (p Prompter) PrivateKey(title string, validate func(string) error) (string, error) {
	if !p.Interactive {
		raw, err := p.readAll()
		if err != nil {
			return "", err
		}
		key := strings.TrimSpace(raw)
		if key == "" {
			return "", errors.New(errors.ErrConfig,
				"No private key on stdin",
				"Pipe the key in: hostwatch secret set-key <target> < ~/.ssh/id_ed25519")
		}
		return key + "\n", nil
	}

	var key string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(title).
				Description("Paste the full PEM block").
				Lines(8).
				Validate(func(s string) error {
					if validate == nil {
						return nil
					}
					return validate(strings.TrimSpace(s) + "\n")
				}).
				Value(&key),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your input",
			"Try again, or pipe the key file on stdin")
	}
	return strings.TrimSpace(key) + "\n", nil
}

// SelectTarget asks which target to act on. Without a terminal the caller
// has to name one.
func (p Prompter) SelectTarget(title string, targets []config.Target) (string, error) {
	if len(targets) == 0 {
		return "", errors.New(errors.ErrConfig,
			"No targets configured",
			"Add a target under 'targets:' in hostwatch.yaml")
	}
	if !p.Interactive {
		return "", errors.New(errors.ErrConfig,
			"No target given",
			"Pass the target ID as an argument")
	}

	options := make([]huh.Option[string], len(targets))
	for i, t := range targets {
		label := t.DisplayName()
		if label != t.Host {
			label += " - " + t.Host
		}
		if !t.IsEnabled() {
			label += " (disabled)"
		}
		options[i] = huh.NewOption(label, t.ID)
	}

	var id string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&id),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your selection",
			"Try again or pass the target ID as an argument")
	}
	return id, nil
}

// Confirm asks a yes/no question. Without a terminal it refuses, so
// destructive commands need an explicit flag in scripts.
func (p Prompter) Confirm(title, description string) (bool, error) {
	if !p.Interactive {
		return false, errors.New(errors.ErrConfig,
			"Confirmation needed but stdin is not a terminal",
			"Pass --yes to skip the prompt")
	}
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your input",
			"Try again or pass --yes")
	}
	return ok, nil
}

func (p Prompter) readAll() (string, error) {
	if p.In == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(p.In, maxSecretBytes))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't read from stdin", "")
	}
	return string(data), nil
}
