package service

import (
	"testing"

	"github.com/S1D007/Chat-App-Backend/internal/auth"
	"github.com/S1D007/Chat-App-Backend/internal/config"
	"github.com/S1D007/Chat-App-Backend/internal/db"
	"github.com/S1D007/Chat-App-Backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database so tests run
// without a Postgres container.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection keeps every query on the same :memory: database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func testConfig() config.Config {
	return config.Config{
		Port:         "0",
		DatabaseDSN:  "test",
		JWTSecret:    "test-secret",
		Env:          "dev",
		TokenTTLDays: 30,
	}
}

func createUser(t *testing.T, gdb *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Username: username, PasswordHash: hash}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}
