package remote

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/hostwatch/internal/config"
)

// aliasEntry is the part of an ssh config Host block that affects how we
// build the command line.
type aliasEntry struct {
	hostname string
	user     string
	port     int
}

// AliasResolver fills in targets whose host is an ssh config alias.
// The file is parsed once on first use; a missing file resolves nothing.
type AliasResolver struct {
	path string

	once    sync.Once
	entries map[string]aliasEntry
}

// NewAliasResolver creates a resolver for the given ssh config file.
// Empty path means ~/.ssh/config.
func NewAliasResolver(path string) *AliasResolver {
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".ssh", "config")
		}
	}
	return &AliasResolver{path: path}
}

// Resolve returns target with HostName applied, and port and user filled in
// from the alias when the target leaves them unset.
func (r *AliasResolver) Resolve(target config.Target) config.Target {
	if r == nil {
		return target
	}
	r.once.Do(r.load)

	entry, ok := r.entries[target.Host]
	if !ok {
		return target
	}

	if entry.hostname != "" {
		target.Host = entry.hostname
	}
	if target.User == "" {
		target.User = entry.user
	}
	if target.Port == 0 {
		target.Port = entry.port
	}
	return target
}

func (r *AliasResolver) load() {
	r.entries = make(map[string]aliasEntry)
	if r.path == "" {
		return
	}

	content, err := readUntilMatch(r.path)
	if err != nil {
		return
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return
	}

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			// Wildcards and negations aren't aliases
			if strings.ContainsAny(alias, "*?!") {
				continue
			}
			if _, seen := r.entries[alias]; seen {
				continue
			}

			entry := aliasEntry{}
			entry.hostname, _ = cfg.Get(alias, "HostName")
			entry.user, _ = cfg.Get(alias, "User")
			if port, _ := cfg.Get(alias, "Port"); port != "" {
				entry.port, _ = strconv.Atoi(port)
			}
			r.entries[alias] = entry
		}
	}
}

// readUntilMatch returns the config content up to the first Match directive,
// which ssh_config cannot decode.
func readUntilMatch(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			lines = lines[:i]
			break
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}
