package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDSN(t *testing.T) {
	dsn, err := sessionDSN(Config{DSN: "postgres://u:p@localhost:5432/todo?sslmode=disable"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/todo?sslmode=disable", dsn)

	dsn, err = sessionDSN(Config{
		DSN:            "postgres://u:p@localhost:5432/todo?sslmode=disable",
		TimeZone:       "UTC",
		ClientEncoding: "UTF8",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/todo?client_encoding=UTF8&sslmode=disable&timezone=UTC", dsn)

	dsn, err = sessionDSN(Config{DSN: "host=localhost dbname=todo", TimeZone: "Asia/Shanghai"})
	require.NoError(t, err)
	assert.Equal(t, "host=localhost dbname=todo timezone='Asia/Shanghai'", dsn)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("DATABASE_MAX_CONNS", "12")
	t.Setenv("DATABASE_TIMEZONE", "UTC")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://x", cfg.DSN)
	assert.Equal(t, 12, cfg.MaxConns)
	assert.Equal(t, "UTC", cfg.TimeZone)

	t.Setenv("DATABASE_MAX_CONNS", "nope")
	assert.Equal(t, 5, ConfigFromEnv().MaxConns)
}
