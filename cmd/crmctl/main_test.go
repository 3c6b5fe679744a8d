package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/donorcrm/internal/auth"
	"github.com/JonMunkholm/donorcrm/internal/core"
)

// run executes crmctl with args and returns stdout and the error.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportDryRun(t *testing.T) {
	out, err := run(t, "first_name,last_name\nAda,Lovelace\nAda,Lovelace\n",
		"import", "--type", "people", "--dry-run", "--json", "-")
	require.NoError(t, err)

	var res core.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Total)
}

func TestImportDryRun_TableOutputAndMappingFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "orgs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Organisation\nAcme\nGlobex\n"), 0o644))
	mapPath := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(mapPath, []byte(`{"name":"Organisation"}`), 0o644))

	out, err := run(t, "", "import", "-t", "companies", "--dry-run", "--mapping-file", mapPath, csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "DRY RUN")
	assert.Regexp(t, `imported\s+2`, out)
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   string
		code int
	}{
		{"unknown type", []string{"import", "-t", "pets", "--dry-run", "-"}, "name\nRex\n", exitUsage},
		{"bad mapping", []string{"import", "-t", "people", "--dry-run", "--mapping", "{", "-"}, "first_name,last_name\nA,B\n", exitUsage},
		{"unmapped required field", []string{"import", "-t", "people", "--dry-run", "-"}, "first_name\nAda\n", exitValidation},
		{"missing file", []string{"import", "-t", "people", "--dry-run", "/does/not/exist.csv"}, "", exitUsage},
		{"no database", []string{"import", "-t", "people", "--database-url", "", "-"}, "first_name,last_name\nA,B\n", exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.in, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestTemplate(t *testing.T) {
	out, err := run(t, "", "template", "-t", "companies")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "name,"), out)

	dir := t.TempDir()
	_, err = run(t, "", "template", "-t", "schools", "-o", dir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "schools")
}

func TestToken(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	out, err := run(t, "", "token", "--for", "alice", "--admin", "--secret", secret, "--ttl", "1h")
	require.NoError(t, err)

	req, err := auth.NewSigner(secret, time.Hour).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, core.Requester{UserID: "alice", IsAdmin: true}, req)

	_, err = run(t, "", "token", "--for", "alice", "--secret", "")
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestResetRequiresConfirmation(t *testing.T) {
	_, err := run(t, "", "reset")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, exitValidation, exitCode(core.Validationf("bad")))
	assert.Equal(t, exitDB, exitCode(withCode(exitDB, errors.New("down"))))
}
