package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/config"
)

func TestSQLiteMigrationsCreateSchema(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "incidents.db"),
	}
	logger := zap.NewNop()

	require.NoError(t, RunMigrations(cfg, logger))
	// A second run is a no-op.
	require.NoError(t, RunMigrations(cfg, logger))

	db, err := NewSQLite(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM incidents`).Scan(&count))
	assert.Zero(t, count)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestRunMigrationsSkipsMemoryDriver(t *testing.T) {
	assert.NoError(t, RunMigrations(config.DatabaseConfig{Driver: config.DriverMemory}, zap.NewNop()))
}

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/city?sslmode=disable", pgx5URL("postgres://u:p@db:5432/city?sslmode=disable"))
	assert.Equal(t, "pgx5://db/city", pgx5URL("postgresql://db/city"))
	assert.Equal(t, "pgx5://db/city", pgx5URL("pgx5://db/city"))
}

func TestNewRedisDisabledWithoutAddr(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{}, zap.NewNop())
	assert.Nil(t, r)
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}
