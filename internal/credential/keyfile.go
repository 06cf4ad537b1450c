package credential

import (
	"os"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// MaterializeKeyFile writes a decrypted private key to a fresh temp file
// readable only by the owner and returns its path. The caller must call
// Cleanup exactly once when the session ends.
func (s *Store) MaterializeKeyFile(plaintext string) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "hostwatch-key-*")
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't create a temporary key file",
			"Check that the temp directory exists and is writable")
	}
	path := f.Name()

	// Permissions are tightened before any key bytes hit the disk.
	if err := f.Chmod(0600); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't restrict temporary key file permissions", "")
	}

	if _, err := f.WriteString(plaintext); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't write the temporary key file", "")
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't write the temporary key file", "")
	}

	return path, nil
}

// Cleanup removes a materialized key file. Removing a path that is already
// gone, or an empty path, is not an error.
func Cleanup(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't remove temporary key file "+path,
			"Delete it manually; it contains a private key")
	}
	return nil
}
