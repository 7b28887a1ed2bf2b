package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}

	assert.Equal(t, ups, downs)
}

func TestMigrations_ReminderInvariant(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	assert.Contains(t, string(b), "CHECK (sent_count <= max_sends)")
	assert.Contains(t, string(b), "VARCHAR(200)")
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(t.Context(), "://not a dsn")
	assert.Error(t, err)
}

func TestMigrations_ReminderRetryColumns(t *testing.T) {
	up, err := fs.ReadFile(migrationsFS, "migrations/000002_reminder_retry.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "retry_at")
	assert.Contains(t, string(up), "failed_attempts")

	down, err := fs.ReadFile(migrationsFS, "migrations/000002_reminder_retry.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP COLUMN IF EXISTS retry_at")
}
