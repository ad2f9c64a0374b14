package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "root:root@tcp(localhost:3306)/matchchat?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "50051", cfg.GRPC.Port)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "local", cfg.Realtime.Broker)
	assert.Equal(t, 5*time.Minute, cfg.Storage.PresignTTL)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_SOURCE", "yes")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DB_DSN", "custom-dsn")

	cfg := New()

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Source)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "custom-dsn", cfg.DB.DSN)
}

func TestFromViper_PostgresDSN(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "Postgres")
	v.Set("DB_HOST", "pg")
	v.Set("DB_USER", "app")
	v.Set("DB_PASSWORD", "secret")

	cfg := FromViper(v)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "host=pg port=5432 user=app password=secret dbname=matchchat sslmode=disable TimeZone=UTC", cfg.DB.DSN)
}

func TestFromViper_SQLiteDSN(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "sqlite")
	v.Set("DB_NAME", "dev")

	cfg := FromViper(v)

	assert.Equal(t, "dev.db", cfg.DB.DSN)
}
