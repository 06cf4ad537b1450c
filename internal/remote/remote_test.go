package remote

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/credential"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every line and answers with a scripted result.
type fakeRunner struct {
	mu      sync.Mutex
	lines   []string
	respond func(line string) (Result, error)
}

func (f *fakeRunner) Run(_ context.Context, line string) (Result, error) {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	f.mu.Unlock()
	if f.respond == nil {
		return Result{}, nil
	}
	return f.respond(line)
}

func (f *fakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// testStore returns a store whose temp files land in dir.
func testStore(t *testing.T, dir string) *credential.Store {
	t.Helper()
	s, err := credential.NewStore(bytes.Repeat([]byte{1}, credential.KeySize), dir)
	require.NoError(t, err)
	return s
}

func keyTarget(t *testing.T, s *credential.Store) config.Target {
	t.Helper()
	blob, err := s.Encrypt("-----BEGIN KEY-----\nabc\n-----END KEY-----\n")
	require.NoError(t, err)
	return config.Target{
		ID:         "web-1",
		Host:       "10.0.0.5",
		User:       "deploy",
		Credential: config.Credential{KeyEnc: blob, HasKey: true},
	}
}

func passwordTarget(t *testing.T, s *credential.Store, pw string) config.Target {
	t.Helper()
	blob, err := s.Encrypt(pw)
	require.NoError(t, err)
	return config.Target{
		ID:         "db",
		Host:       "db.internal",
		Port:       2222,
		User:       "root",
		Credential: config.Credential{PasswordEnc: blob, HasPassword: true},
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, filepath.Join(dir, e.Name()))
	}
	return names
}
