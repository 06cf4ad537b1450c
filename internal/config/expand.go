package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// Expand replaces ${HOME} and ${USER} and then expands a leading tilde.
// It is applied to local paths only (key file, journal, temp dir).
func Expand(s string) string {
	if s == "" {
		return s
	}

	result := s
	if strings.Contains(result, "${HOME}") {
		home, _ := os.UserHomeDir()
		result = strings.ReplaceAll(result, "${HOME}", home)
	}
	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", currentUser())
	}

	return ExpandTilde(result)
}

// currentUser returns the login name, preferring $USER.
func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
