package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopease/internal/config"
)

func openTestDB(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:   "sqlite",
		DBName:   filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	cfg := openTestDB(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Ping(context.Background(), db))

	missing, err := CheckTables(db, config.ServiceOrder)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orders", "order_items"}, missing)

	require.NoError(t, AutoMigrate(db, config.ServiceOrder))

	missing, err = CheckTables(db, config.ServiceOrder)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestModelsUnknownService(t *testing.T) {
	_, err := Models("inventory")
	assert.Error(t, err)
}

func TestEveryServiceMigrates(t *testing.T) {
	for _, service := range config.Services {
		t.Run(service, func(t *testing.T) {
			db, err := Open(openTestDB(t))
			require.NoError(t, err)
			defer Close(db)
			assert.NoError(t, AutoMigrate(db, service))
		})
	}
}

func TestPingNil(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
}
