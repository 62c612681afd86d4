package main

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// execute runs shelfctl against dataPath and returns stdout.
func execute(t *testing.T, dataPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--data-path", dataPath, "--env-file", filepath.Join(dataPath, "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, dataPath string, args ...string) string {
	t.Helper()
	out, err := execute(t, dataPath, args...)
	require.NoError(t, err, out)
	return out
}

func TestSettingsShowAndReset(t *testing.T) {
	dir := t.TempDir()

	var policy domain.PolicySettings
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, dir, "settings", "show")), &policy))
	assert.Equal(t, domain.DefaultPolicy().MaxBooksPerMember, policy.MaxBooksPerMember)
	assert.True(t, policy.FinePerDay.Equal(domain.DefaultPolicy().FinePerDay))

	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, dir, "settings", "reset")), &policy))
	assert.Equal(t, domain.DefaultPolicy().MaxRenewals, policy.MaxRenewals)
}

func TestSweepOnEmptyLibrary(t *testing.T) {
	dir := t.TempDir()

	var result service.SweepResult
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, dir, "sweep")), &result))
	assert.Zero(t, result.Expired)
	assert.Zero(t, result.FinesAssessed)
	assert.Empty(t, result.Errors)
}

func TestInvalidListAndPurge(t *testing.T) {
	dir := t.TempDir()

	assert.JSONEq(t, "[]", mustExecute(t, dir, "invalid", "list"))
	assert.JSONEq(t, `{"deleted":0}`, mustExecute(t, dir, "invalid", "purge"))
}

func TestBackupExportListRestore(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "snapshot.shelfwise.zip")

	var created backup.BackupResult
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, dir, "backup", "export", "-o", archive)), &created))
	assert.Equal(t, archive, created.Path)
	assert.NotEmpty(t, created.Checksum)

	var restored backup.RestoreResult
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, dir, "backup", "restore", "--dry-run", archive)), &restored))
	assert.True(t, restored.DryRun)

	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, dir, "backup", "restore", archive)), &restored))
	assert.False(t, restored.DryRun)

	assert.JSONEq(t, "[]", mustExecute(t, dir, "backup", "list"))
}

func TestBackupRestoreMissingArchive(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "backup", "restore", "nope")
	require.ErrorIs(t, err, backup.ErrBackupNotFound)
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, t.TempDir(), "frobnicate")
	require.Error(t, err)
}
