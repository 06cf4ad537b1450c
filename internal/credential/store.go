package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// KeySize is the length of the process key in bytes (AES-256).
const KeySize = 32

// Store encrypts and decrypts credentials with a single process key.
// It is safe for concurrent use.
type Store struct {
	aead    cipher.AEAD
	tempDir string
}

// NewStore creates a store from a raw 32-byte key. tempDir is where
// materialized key files go; empty means the OS temp dir.
func NewStore(key []byte, tempDir string) (*Store, error) {
	if len(key) != KeySize {
		return nil, errors.New(errors.ErrEncrypt,
			fmt.Sprintf("Encryption key must be %d bytes, got %d", KeySize, len(key)),
			"Delete the key file to generate a new one (stored credentials will need to be re-entered)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrEncrypt,
			"Couldn't initialize the cipher", "")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrEncrypt,
			"Couldn't initialize GCM mode", "")
	}

	return &Store{aead: aead, tempDir: tempDir}, nil
}

// Open loads (or creates) the key named in cfg and returns a ready store.
func Open(cfg config.CredentialConfig) (*Store, error) {
	key, err := LoadOrCreateKey(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	return NewStore(key, cfg.TempDir)
}

// LoadOrCreateKey reads the hex-encoded process key at path. When the file
// doesn't exist a new random key is generated and persisted with mode 0600
// before it is returned.
func LoadOrCreateKey(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New(errors.ErrConfig,
			"No key file configured",
			"Set credentials.key_file in your config")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		key, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(key) != KeySize {
			return nil, errors.New(errors.ErrDecrypt,
				"Key file "+path+" is corrupt",
				"Restore it from a backup, or delete it and re-enter every credential")
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't read key file "+path,
			"Check the file permissions")
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrEncrypt,
			"Couldn't generate an encryption key", "")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't create the key directory",
			"Check permissions on "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFS,
			"Couldn't write key file "+path,
			"Check permissions on "+filepath.Dir(path))
	}

	return key, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext || tag).
func (s *Store) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrEncrypt,
			"Couldn't generate a nonce", "")
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed, truncated or tampered blobs, and blobs
// sealed under a different key, return a DECRYPT error.
func (s *Store) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrDecrypt,
			"Stored credential isn't valid base64",
			"Set the credential again with: hostwatch secret")
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize+s.aead.Overhead() {
		return "", errors.New(errors.ErrDecrypt,
			"Stored credential is truncated",
			"Set the credential again with: hostwatch secret")
	}

	plain, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrDecrypt,
			"Couldn't decrypt stored credential",
			"The key file may have changed since it was stored. Set the credential again.")
	}

	return string(plain), nil
}
