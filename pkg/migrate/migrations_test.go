package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT ux_orders_order_id UNIQUE (order_id)",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"CHECK (fulfillment_status <> 'cancelled' OR cancellation_reason IS NOT NULL)",
		"unit_price numeric(12,2) NOT NULL",
	} {
		assert.Contains(t, content, want)
	}
}

func TestReconciledAtMigration(t *testing.T) {
	content := readMigration(t, "add_orders_reconciled_at")
	assert.Contains(t, content, "ADD COLUMN IF NOT EXISTS reconciled_at timestamptz")
	assert.Contains(t, content, "WHERE status = 'active'")
	assert.Contains(t, content, "DROP COLUMN IF EXISTS reconciled_at")
}

func TestEnumMigrationMatchesStatusValues(t *testing.T) {
	content := readMigration(t, "create_fulfillment_enums")
	for _, want := range []string{
		"CREATE TYPE order_status AS ENUM ('active', 'completed', 'cancelled', 'partially_fulfilled')",
		"CREATE TYPE order_fulfillment_status AS ENUM ('pending', 'partial', 'fulfilled', 'cancelled')",
		"CREATE TYPE line_fulfillment_status AS ENUM ('pending', 'fulfilled', 'cancelled')",
		"CREATE TYPE task_status AS ENUM ('pending', 'completed', 'cancelled', 'reassigned')",
	} {
		assert.Contains(t, content, want)
	}
}

func TestTasksMigrationIndexesLatestLookup(t *testing.T) {
	content := readMigration(t, "create_tasks")
	assert.Contains(t, content, "ON tasks (external_order_id, employee_id, updated_at DESC)")
	assert.Contains(t, content, "REFERENCES employees(id)")
}

func TestOutboxMigrationListsEveryEventType(t *testing.T) {
	content := readMigration(t, "create_outbox")
	for _, want := range []string{
		"'fulfillment.lines_fulfilled'",
		"'fulfillment.line_fulfilled'",
		"'fulfillment.lines_cancelled'",
		"'fulfillment.order_override_fulfilled'",
		"'order.status_changed'",
		"'task.status_changed'",
		"'task.assigned'",
		"'task.reassigned'",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"'max_attempts', 'non_retryable', 'unroutable'",
	} {
		assert.Contains(t, content, want)
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid migration filename"))
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Task Notes")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_task_notes.sql"))
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestApplySQLiteSchemaIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:apply_schema?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()
	require.NoError(t, migrate.ApplySQLiteSchema(ctx, sqlDB))
	require.NoError(t, migrate.ApplySQLiteSchema(ctx, sqlDB))

	var count int64
	require.NoError(t, conn.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('orders','order_lines','tasks','outbox_events')").Scan(&count).Error)
	assert.Equal(t, int64(4), count)
}
