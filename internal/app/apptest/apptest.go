// Package apptest wires an AppContext against in-memory SQLite and miniredis.
package apptest

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/db/dbtest"
	"github.com/oggyb/matchchat/internal/logger"
)

// TestSecret signs tokens issued by AppContexts built here.
const TestSecret = "test-secret"

// Env is an isolated AppContext plus handles on its fakes.
type Env struct {
	App   *app.AppContext
	Redis *miniredis.Miniredis
}

// New spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis and wires everything into an AppContext.
// Each test gets its own isolated DB + Redis. Photos stays nil.
func New(t *testing.T) *Env {
	t.Helper()

	gdb := dbtest.New(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	tokens := auth.NewTokens(TestSecret, time.Hour)
	return &Env{
		App:   app.New(gdb, redisCache, logger.Discard(), tokens, nil),
		Redis: mr,
	}
}
