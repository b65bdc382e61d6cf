package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validPolicy = `{
	"min_length": 10,
	"complexity": {"uppercase": true, "lowercase": true, "digits": true, "special": true},
	"history_count": 3,
	"max_failed_logins": 3,
	"prevent_reuse": true
}`

func TestNewProvider(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.json", validPolicy)
	commonPath := writeFile(t, dir, "common.txt", "password\nQwerty123\n\n 123456 \n")

	p, err := NewProvider(policyPath, commonPath)
	require.NoError(t, err)

	cfg := p.Current()
	require.Equal(t, 10, cfg.MinLength)
	require.True(t, cfg.Complexity.Uppercase)
	require.True(t, cfg.Complexity.Lowercase)
	require.True(t, cfg.Complexity.Digits)
	require.True(t, cfg.Complexity.Special)
	require.Equal(t, 3, cfg.HistoryCount)
	require.Equal(t, 3, cfg.MaxFailedLogins)
	require.True(t, cfg.PreventReuse)

	common := p.CommonPasswords()
	require.True(t, common.Contains("password"))
	require.True(t, common.Contains("PASSWORD"), "lookup should be case-insensitive")
	require.True(t, common.Contains("qwerty123"), "list entries should be lowercased")
	require.True(t, common.Contains("123456"), "list entries should be trimmed")
	require.False(t, common.Contains("hunter2"))
}

func TestNewProviderMissingPolicyFile(t *testing.T) {
	dir := t.TempDir()
	_, err := NewProvider(filepath.Join(dir, "missing.json"), filepath.Join(dir, "common.txt"))
	require.Error(t, err)
}

func TestNewProviderMissingCommonFile(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.json", validPolicy)

	p, err := NewProvider(policyPath, filepath.Join(dir, "missing.txt"))
	require.NoError(t, err, "a missing common-password file should not fail startup")
	require.False(t, p.CommonPasswords().Contains("password"))
}

func TestNewProviderRejectsInvalidPolicy(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"min_length": `},
		{"zero min_length", `{"min_length": 0, "max_failed_logins": 3}`},
		{"zero max_failed_logins", `{"min_length": 10, "max_failed_logins": 0}`},
		{"reuse without history", `{"min_length": 10, "max_failed_logins": 3, "prevent_reuse": true, "history_count": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			policyPath := writeFile(t, dir, "policy.json", tt.content)
			_, err := NewProvider(policyPath, filepath.Join(dir, "common.txt"))
			require.Error(t, err)
		})
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.json", validPolicy)
	commonPath := writeFile(t, dir, "common.txt", "password\n")

	p, err := NewProvider(policyPath, commonPath)
	require.NoError(t, err)
	require.Equal(t, 10, p.Current().MinLength)

	writeFile(t, dir, "policy.json", `{"min_length": 14, "max_failed_logins": 5}`)
	writeFile(t, dir, "common.txt", "letmein\n")
	require.NoError(t, p.Reload())

	require.Equal(t, 14, p.Current().MinLength)
	require.Equal(t, 5, p.Current().MaxFailedLogins)
	require.True(t, p.CommonPasswords().Contains("letmein"))
	require.False(t, p.CommonPasswords().Contains("password"))
}

func TestReloadKeepsSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFile(t, dir, "policy.json", validPolicy)
	commonPath := writeFile(t, dir, "common.txt", "password\n")

	p, err := NewProvider(policyPath, commonPath)
	require.NoError(t, err)

	writeFile(t, dir, "policy.json", `not json`)
	require.Error(t, p.Reload())

	require.Equal(t, 10, p.Current().MinLength, "the prior snapshot should survive a failed reload")
	require.True(t, p.CommonPasswords().Contains("password"))
}
