package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationBumpsTakenVersion(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })

	dir := t.TempDir()
	first, err := CreateSQLMigration(dir, "add notes")
	require.NoError(t, err)
	second, err := CreateSQLMigration(dir, "add notes")
	require.NoError(t, err)

	assert.Equal(t, "20260301090000_add_notes.sql", filepath.Base(first))
	assert.Equal(t, "20260301090001_add_notes.sql", filepath.Base(second))
	require.NoError(t, ValidateDir(dir))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "add_task_notes", sanitizeName("  Add Task-Notes!! "))
	assert.Empty(t, sanitizeName("!!!"))
	assert.Len(t, sanitizeName(strings.Repeat("a", 100)), maxNameLength)
}

func TestValidateAnnotations(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "ok", body: "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n"},
		{name: "missing down", body: "-- +goose Up\n", wantErr: "missing"},
		{name: "down first", body: "-- +goose Down\n-- +goose Up\n", wantErr: "must come before"},
		{name: "unterminated", body: "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n", wantErr: "unterminated"},
		{name: "stray end", body: "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n", wantErr: "without matching begin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAnnotations(tt.body)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDirReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301090000_bad.sql"), []byte("-- +goose Down\n-- +goose Up\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20260301090000_bad.sql")
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embeddedFiles, err := fs.Glob(embedded, embeddedDir+"/*.sql")
	require.NoError(t, err)
	diskFiles, err := filepath.Glob("migrations/*.sql")
	require.NoError(t, err)

	require.NotEmpty(t, embeddedFiles)
	assert.Len(t, embeddedFiles, len(diskFiles))

	resolved, err := prepare(DefaultDir)
	require.NoError(t, err)
	assert.Equal(t, embeddedDir, resolved)
	resolved, err = prepare(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, embeddedDir, resolved)
}
