package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikepea/recipebox/pkg/recipebox/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"app.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		SQLiteDSN("app.db"))
	assert.Equal(t,
		"app.db?_busy_timeout=100&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate",
		SQLiteDSN("app.db?_busy_timeout=100"))
}

func TestOpenSQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"}

	db, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle", DSN: "x"}, zap.NewNop())
	assert.Error(t, err)
}

func TestWaitForAvailable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		LogLevel:     "silent",
		WaitAttempts: 3,
		WaitInterval: 10 * time.Millisecond,
	}

	db, err := WaitFor(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestWaitForGivesUp(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "missing-dir", "test.db"),
		LogLevel:     "silent",
		WaitAttempts: 2,
		WaitInterval: time.Millisecond,
	}

	_, err := WaitFor(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "after 2 attempts")
}
