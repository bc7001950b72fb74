// Package storagetest provides an in-memory database for tests.
package storagetest

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"social-go/internal/models"
	"social-go/internal/storage"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// The pool is capped at one connection, so code running inside a transaction
// must only use the transaction handle.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.AutoMigrateTables(db))
	return db
}

// CreateUser inserts a local account with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		FullName:     username + " Tester",
		Email:        username + "@example.com",
		PasswordHash: "x",
		AuthProvider: models.AuthProviderLocal,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
