package credential

import (
	stderrors "errors"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Auth is decrypted authentication material for one target.
// Exactly one of KeyPEM and Password is set.
type Auth struct {
	KeyPEM   string
	Password string
}

// UsesKey reports whether this is key authentication.
func (a Auth) UsesKey() bool {
	return a.KeyPEM != ""
}

// Resolve decrypts the preferred credential form. A key wins over a
// password. A target without any stored credential fails with AUTH.
func (s *Store) Resolve(cred config.Credential) (Auth, error) {
	switch {
	case cred.UsesKey():
		pem, err := s.Decrypt(cred.KeyEnc)
		if err != nil {
			return Auth{}, err
		}
		// An empty key would silently fall through to password auth.
		if strings.TrimSpace(pem) == "" {
			return Auth{}, errors.New(errors.ErrAuth,
				"Stored private key is empty",
				"Store it again with: hostwatch secret set-key <target>")
		}
		return Auth{KeyPEM: pem}, nil
	case cred.UsesPassword():
		pw, err := s.Decrypt(cred.PasswordEnc)
		if err != nil {
			return Auth{}, err
		}
		return Auth{Password: pw}, nil
	default:
		return Auth{}, errors.New(errors.ErrAuth,
			"No credential stored for this target",
			"Store one with: hostwatch secret set-key <target> or hostwatch secret set-password <target>")
	}
}

// ValidatePrivateKey checks that pem parses as an unencrypted private key.
// ssh can't prompt for a passphrase in batch mode, so protected keys are
// rejected here rather than at the first poll.
func ValidatePrivateKey(pem string) error {
	if strings.TrimSpace(pem) == "" {
		return errors.New(errors.ErrConfig,
			"Private key is empty",
			"Point at a file containing an OpenSSH or PEM private key")
	}

	_, err := ssh.ParseRawPrivateKey([]byte(pem))
	if err == nil {
		return nil
	}

	var missing *ssh.PassphraseMissingError
	if stderrors.As(err, &missing) || strings.Contains(pem, "ENCRYPTED") {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Private key is passphrase protected",
			"Export an unprotected copy: ssh-keygen -p -N '' -f <copy-of-key>")
	}

	return errors.WrapWithCode(err, errors.ErrConfig,
		"That doesn't look like a private key",
		"Use the private half of the key pair (e.g. ~/.ssh/id_ed25519, not .pub)")
}
