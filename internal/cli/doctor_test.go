package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

type doctorEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Categories []struct {
			Name    string `json:"name"`
			Results []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"results"`
		} `json:"categories"`
		Summary struct {
			Fail     int  `json:"fail"`
			AllClear bool `json:"all_clear"`
		} `json:"summary"`
	} `json:"data"`
}

func (e doctorEnvelope) status(name string) string {
	for _, c := range e.Data.Categories {
		for _, r := range c.Results {
			if r.Name == name {
				return r.Status
			}
		}
	}
	return ""
}

func TestDoctor_MissingCredentialsFail(t *testing.T) {
	path := setupCLI(t, &fakeRemote{})

	out, err := runCLI(t, path, "doctor", "--json")
	require.Error(t, err)
	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)

	var env doctorEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.NotEmpty(t, env.Data.Categories)
	assert.Equal(t, "CONFIG", env.Data.Categories[0].Name)
	assert.Equal(t, "pass", env.status("config"))
	assert.Equal(t, "pass", env.status("targets"))
	assert.Equal(t, "fail", env.status("credential_web-1"))
	assert.Equal(t, "fail", env.status("credential_db-1"))
	assert.Equal(t, "pass", env.status("journal"))
	assert.GreaterOrEqual(t, env.Data.Summary.Fail, 2)
	assert.False(t, env.Data.Summary.AllClear)
}

func TestDoctor_StoredCredentialPasses(t *testing.T) {
	path := setupCLI(t, &fakeRemote{})
	_, err := runCLI(t, path, "target", "disable", "db-1")
	require.NoError(t, err)
	pipeInput("hunter2")
	_, err = runCLI(t, path, "secret", "set-password", "web-1")
	require.NoError(t, err)

	out, _ := runCLI(t, path, "doctor", "--json")

	var env doctorEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "pass", env.status("credential_web-1"))
	assert.Equal(t, "pass", env.status("secret_key"))
	assert.Empty(t, env.status("credential_db-1"), "disabled targets are skipped")
}

func TestDoctor_TextReport(t *testing.T) {
	path := setupCLI(t, &fakeRemote{})

	out, err := runCLI(t, path, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "hostwatch diagnostic report")
	assert.Contains(t, out, "CREDENTIALS")
	assert.Contains(t, out, "Web: no credential stored")
	assert.Contains(t, out, "hostwatch secret set-key web-1")
	assert.Contains(t, out, "found")
}

func TestDoctor_MissingConfig(t *testing.T) {
	setupCLI(t, &fakeRemote{})

	out, err := runCLI(t, filepath.Join(t.TempDir(), "missing.yaml"), "doctor", "--json")
	require.Error(t, err)

	var env doctorEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.Len(t, env.Data.Categories, 1)
	assert.Equal(t, "fail", env.status("config"))
}
