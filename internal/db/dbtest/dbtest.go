// Package dbtest provides an isolated in-memory SQLite database for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matchchat/internal/db"
)

// New spins up an in-memory SQLite DB named after the test and applies migrations.
// Each test gets its own isolated database.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	database, err := db.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// SQLite serializes writers anyway; one connection avoids SQLITE_LOCKED
	// under shared cache when tests run goroutines against the same DB.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// CreateUser inserts a user with a profile and returns it.
func CreateUser(t *testing.T, gdb *gorm.DB, id uint64, name string) db.User {
	t.Helper()

	u := db.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@test.com", strings.ToLower(name)),
		PasswordHash: "x",
		Active:       true,
		Profile:      &db.Profile{Name: name, Age: 25, Gender: "woman", Bio: "bio of " + name},
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// SeedUsers inserts users 1..n named user1..userN.
func SeedUsers(t *testing.T, gdb *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		CreateUser(t, gdb, uint64(i), fmt.Sprintf("user%d", i))
	}
}

// CreateMatch inserts the match {a, b} along with the reciprocal likes it implies.
func CreateMatch(t *testing.T, gdb *gorm.DB, a, b uint64) db.Match {
	t.Helper()

	require.NoError(t, gdb.Create(&db.Like{FromID: a, ToID: b}).Error)
	require.NoError(t, gdb.Create(&db.Like{FromID: b, ToID: a}).Error)
	m := db.NewMatch(a, b)
	require.NoError(t, gdb.Create(&m).Error)
	return m
}
