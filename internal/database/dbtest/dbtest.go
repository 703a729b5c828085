// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"shopease/internal/config"
	"shopease/internal/database"
)

// Open returns a migrated sqlite database for service, closed when t ends
func Open(t testing.TB, service string) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DBName:   filepath.Join(t.TempDir(), service+".db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.AutoMigrate(db, service); err != nil {
		t.Fatalf("migrate %s: %v", service, err)
	}
	return db
}
