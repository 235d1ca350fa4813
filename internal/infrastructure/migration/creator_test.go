package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelreview/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add retry index", "add_retry_index"},
		{"Add-Retry-Index", "add_retry_index"},
		{"ADD__RETRY__INDEX", "add_retry_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_init.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_init.down.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000004_tokens.up.sql"), nil, 0o644))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mf, err := CreateMigration(dir, "Add retry index", "Speeds up the FAILED scan", now)
	require.NoError(t, err)

	assert.Equal(t, uint(5), mf.Version)
	assert.Equal(t, filepath.Join(dir, "000005_add_retry_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000005_add_retry_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_retry_index")
	assert.Contains(t, string(up), "2026-03-01T12:00:00Z")
	assert.Contains(t, string(up), "Speeds up the FAILED scan")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- Rollback: add_retry_index")
}

func TestCreateMigration_FirstInEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	mf, err := CreateMigration(dir, "init", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)
	assert.FileExists(t, mf.UpPath)
	assert.FileExists(t, mf.DownPath)
}

func TestCreateMigration_EmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "", time.Now())
	assert.ErrorIs(t, err, ErrEmptyMigrationName)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_tokens.up.sql":     {},
		"000001_init.up.sql":       {},
		"000001_init.down.sql":     {},
		"README.md":                {},
		"abc_bad.up.sql":           {},
		"000003_noop.sideways.sql": {},
		"sub/000009_x.up.sql":      {},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []MigrationInfo{
		{Version: 1, Name: "init", HasDown: true},
		{Version: 2, Name: "tokens", HasDown: false},
	}, list)
}

func TestListMigrations_MissingDir(t *testing.T) {
	list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, info := range list {
		assert.Equal(t, uint(i+1), info.Version, "versions must be contiguous")
		assert.True(t, info.HasDown, "migration %d has no down file", info.Version)
	}
}
