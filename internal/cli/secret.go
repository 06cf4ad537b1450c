package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// newPrompter builds the prompter for secret input. Tests replace it to feed
// input without a terminal.
var newPrompter = func() ui.Prompter { return ui.NewPrompter(os.Stdin) }

var (
	secretKeyFile string
	secretYes     bool
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Store or clear target credentials",
	Long: `Manage the encrypted credentials stored in hostwatch.yaml.

Passwords and private keys are encrypted with the local secret key
(credentials.key_file) before they are written. A stored key always takes
priority over a stored password.`,
}

var secretSetPasswordCmd = &cobra.Command{
	Use:   "set-password [target]",
	Short: "Encrypt and store a password for a target",
	Example: `  hostwatch secret set-password web-1
  printf '%s' "$PW" | hostwatch secret set-password web-1`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return secretSetPasswordCommand(cmd, args)
	},
}

var secretSetKeyCmd = &cobra.Command{
	Use:   "set-key [target]",
	Short: "Encrypt and store a private key for a target",
	Example: `  hostwatch secret set-key web-1 --file ~/.ssh/id_ed25519
  hostwatch secret set-key web-1 < ~/.ssh/id_ed25519`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return secretSetKeyCommand(cmd, args)
	},
}

var secretClearCmd = &cobra.Command{
	Use:               "clear [target]",
	Short:             "Remove every stored credential of a target",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return secretClearCommand(cmd, args)
	},
}

func init() {
	secretSetKeyCmd.Flags().StringVarP(&secretKeyFile, "file", "f", "", "read the private key from this file")
	secretClearCmd.Flags().BoolVarP(&secretYes, "yes", "y", false, "skip the confirmation prompt")

	secretCmd.AddCommand(secretSetPasswordCmd, secretSetKeyCmd, secretClearCmd)
	rootCmd.AddCommand(secretCmd)
}

// pickTarget resolves the target argument, asking when none was given.
func pickTarget(a *app, p ui.Prompter, args []string, title string) (config.Target, error) {
	if len(args) == 1 {
		return a.target(args[0])
	}
	id, err := p.SelectTarget(title, a.cfg.Targets)
	if err != nil {
		return config.Target{}, err
	}
	return a.target(id)
}

func secretSetPasswordCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	p := newPrompter()

	t, err := pickTarget(a, p, args, "Store a password for which target?")
	if err != nil {
		return err
	}
	pw, err := p.Password(fmt.Sprintf("Password for %s@%s", t.User, t.Host))
	if err != nil {
		return err
	}

	enc, err := a.store.Encrypt(pw)
	if err != nil {
		return err
	}
	cred := t.Credential
	cred.PasswordEnc = enc
	if err := config.SetCredential(a.cfgPath, t.ID, cred); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Password stored for %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), t.DisplayName())
	if t.UsesKey() {
		fmt.Fprintln(out, ui.MutedStyle().Render("  A private key is also stored and takes priority."))
	}
	return nil
}

func secretSetKeyCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	p := newPrompter()

	t, err := pickTarget(a, p, args, "Store a private key for which target?")
	if err != nil {
		return err
	}

	var key string
	if secretKeyFile != "" {
		data, err := os.ReadFile(config.Expand(secretKeyFile))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrFS,
				"Couldn't read "+secretKeyFile,
				"Check the path, or pipe the key on stdin instead")
		}
		key = string(data)
	} else {
		key, err = p.PrivateKey(fmt.Sprintf("Private key for %s@%s", t.User, t.Host), credential.ValidatePrivateKey)
		if err != nil {
			return err
		}
	}
	if err := credential.ValidatePrivateKey(key); err != nil {
		return err
	}

	enc, err := a.store.Encrypt(key)
	if err != nil {
		return err
	}
	cred := t.Credential
	cred.KeyEnc = enc
	if err := config.SetCredential(a.cfgPath, t.ID, cred); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Private key stored for %s\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), t.DisplayName())
	return nil
}

func secretClearCommand(cmd *cobra.Command, args []string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	p := newPrompter()

	t, err := pickTarget(a, p, args, "Clear the credentials of which target?")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if t.PasswordEnc == "" && t.KeyEnc == "" {
		fmt.Fprintf(out, "%s has no stored credentials\n", t.DisplayName())
		return nil
	}

	if !secretYes {
		ok, err := p.Confirm("Clear credentials of "+t.DisplayName()+"?",
			"hostwatch won't be able to log in until a new secret is set.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	}

	if err := config.ClearCredential(a.cfgPath, t.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Credentials cleared for %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), t.DisplayName())
	return nil
}
