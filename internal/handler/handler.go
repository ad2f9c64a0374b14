package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/auth"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/realtime"
	"github.com/oggyb/matchchat/internal/service/account"
	"github.com/oggyb/matchchat/internal/service/chat"
	"github.com/oggyb/matchchat/internal/service/match"
)

// Handler serves the REST API. Transport concerns only: parse, call the
// service, map the result.
type Handler struct {
	appCtx   *app.AppContext
	accounts *account.Service
	matches  *match.Service
	chat     *chat.Service
	channel  *realtime.Channel
}

func New(appCtx *app.AppContext, accounts *account.Service, matches *match.Service, chatSvc *chat.Service, channel *realtime.Channel) *Handler {
	return &Handler{
		appCtx:   appCtx,
		accounts: accounts,
		matches:  matches,
		chat:     chatSvc,
		channel:  channel,
	}
}

// Register mounts every /api route on the router.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", h.RegisterUser)
			authRoutes.POST("/login", h.Login)
		}

		protected := api.Group("")
		protected.Use(auth.AuthMiddleware(h.appCtx.Tokens))
		{
			protected.GET("/profile/me", h.GetMe)
			protected.PUT("/profile", h.UpdateProfile)
			protected.GET("/profile/candidates", h.ListCandidates)
			protected.POST("/profile/photo/upload-url", h.PhotoUploadURL)
			protected.POST("/profile/photo/read-url", h.PhotoReadURL)

			protected.GET("/likes/sent", h.LikesSent) // Must be before /:userId
			protected.GET("/likes/received", h.LikesReceived)
			protected.GET("/likes/received/count", h.CountLikesReceived)
			protected.POST("/likes/:userId", h.Like)
			protected.POST("/passes/:userId", h.Pass)

			protected.GET("/matches", h.ListMatches)
			protected.DELETE("/matches/:matchId", h.Unmatch)

			protected.GET("/conversations", h.Conversations)
			protected.GET("/messages/:matchId", h.History)
			protected.POST("/messages/:matchId", h.SendMessage)
		}
	}
}

// fail writes err as JSON with the status its taxonomy value maps to.
func (h *Handler) fail(c *gin.Context, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context(), h.appCtx.Logger).Error("request failed", "err", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: svcErr.Message(err), Code: svcErr.Code(err)})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.fail(c, svcErr.InvalidArgument(err.Error()))
}

// idParam parses a positive uint64 path parameter.
func idParam(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(name + " must be a positive integer")
	}
	return id, nil
}

// pageParams reads page_token and limit from the query string.
func pageParams(c *gin.Context) (*string, int, error) {
	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}
	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return nil, 0, svcErr.InvalidArgument("limit must be a non-negative integer")
		}
		limit = n
	}
	return token, limit, nil
}
