package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	// Tokens issues and verifies session tokens.
	Tokens *auth.Tokens
	// Photos is nil when no bucket is configured.
	Photos *storage.Presigner
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, tokens *auth.Tokens, photos *storage.Presigner) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Tokens:     tokens,
		Photos:     photos,
	}
}
