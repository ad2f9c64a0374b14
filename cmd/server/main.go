package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/handler"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/realtime"
	"github.com/oggyb/matchchat/internal/server"
	"github.com/oggyb/matchchat/internal/service/account"
	"github.com/oggyb/matchchat/internal/service/chat"
	"github.com/oggyb/matchchat/internal/service/match"
	"github.com/oggyb/matchchat/internal/storage"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return err
	}
	defer redisCache.Close()

	photos, err := storage.NewPresigner(ctx, cfg)
	if err != nil {
		return err
	}
	if photos == nil {
		log.Warn("S3_BUCKET not set, photo uploads disabled")
	}

	if cfg.Auth.JWTSecret == "change-me" && cfg.App.ENV != "development" {
		log.Warn("JWT_SECRET is the default value")
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	appCtx := app.New(database, redisCache, log, tokens, photos)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Realtime channel
	chatSvc := chat.NewService(appCtx)
	hub := realtime.NewHub(log)
	var broker realtime.Broker
	switch cfg.Realtime.Broker {
	case "redis":
		rb := realtime.NewRedisBroker(redisCache, hub, log)
		if err := rb.Start(ctx); err != nil {
			return err
		}
		defer rb.Close()
		broker = rb
	default:
		broker = realtime.NewLocalBroker(hub)
	}
	channel := realtime.NewChannel(hub, broker, chatSvc, tokens, log)

	sio := realtime.NewSocketIOServer(channel, log)
	go func() {
		if err := sio.Serve(); err != nil {
			log.Error("socket.io server stopped", "err", err)
		}
	}()
	defer sio.Close()

	// HTTP
	h := handler.New(appCtx, account.NewService(appCtx), match.NewService(appCtx), chatSvc, channel)
	ws := realtime.NewWSHandler(channel, cfg.HTTP.AllowedOrigins, log)
	router := server.NewRouter(cfg, h, ws, sio, log)
	httpServer := server.NewHTTPServer(cfg, router)

	// gRPC ops server: health + reflection
	health := server.NewHealthRegistrar(log, 15*time.Second,
		server.Probe{Name: "db", Check: sqlDB.PingContext},
		server.Probe{Name: "redis", Check: redisCache.Ping},
	)
	grpcServer := server.NewGRPCServer(health)
	go health.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting HTTP server", "addr", httpServer.Addr, "broker", cfg.Realtime.Broker)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		if err := server.ServeGRPC(cfg, grpcServer); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server failed", "err", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	grpcServer.GracefulStop()
	httpErr := httpServer.Shutdown(shutdownCtx)

	// Shutdown leaves hijacked websocket connections alone
	log.Info("closing websocket connections", "open", ws.Len())
	return errors.Join(httpErr, ws.Close(shutdownCtx))
}
