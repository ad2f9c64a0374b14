package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/oggyb/matchchat/internal/config"
	"github.com/oggyb/matchchat/internal/handler"
)

// NewRouter builds the gin engine: REST routes plus the realtime
// transports mounted at /ws and /socket.io/.
func NewRouter(cfg *config.Config, h *handler.Handler, ws http.Handler, sio http.Handler, log *slog.Logger) *gin.Engine {
	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(log))

	h.Register(router)
	if ws != nil {
		router.GET("/ws", gin.WrapH(ws))
	}
	if sio != nil {
		router.Any("/socket.io/*any", gin.WrapH(sio))
	}
	return router
}

// NewHTTPServer wraps the router with CORS and returns a server listening
// on HTTP_HOST:HTTP_PORT. The caller runs ListenAndServe and Shutdown.
func NewHTTPServer(cfg *config.Config, router http.Handler) *http.Server {
	origins := cfg.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", handler.RequestIDHeader},
		ExposedHeaders:   []string{handler.RequestIDHeader},
		AllowCredentials: !containsWildcard(origins),
	})

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
