package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matchchat/internal/auth"
)

// Like records a like from the caller to :userId.
// POST /api/likes/:userId → 201 LikeResponse
func (h *Handler) Like(c *gin.Context) {
	targetID, err := idParam(c, "userId")
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.matches.RecordLike(c.Request.Context(), auth.UserID(c), targetID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newLikeResponse(res))
}

// Pass records a pass from the caller to :userId.
func (h *Handler) Pass(c *gin.Context) {
	targetID, err := idParam(c, "userId")
	if err != nil {
		h.fail(c, err)
		return
	}

	pass, err := h.matches.RecordPass(c.Request.Context(), auth.UserID(c), targetID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, PassResponse{FromID: pass.FromID, ToID: pass.ToID, CreatedAt: pass.CreatedAt})
}

func (h *Handler) LikesSent(c *gin.Context) {
	views, err := h.matches.LikesSent(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newLikeViewResponses(views))
}

// LikesReceived pages through users who liked the caller.
// GET /api/likes/received?page_token=&limit=
func (h *Handler) LikesReceived(c *gin.Context) {
	token, limit, err := pageParams(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	views, next, err := h.matches.LikesReceived(c.Request.Context(), auth.UserID(c), token, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PageResponse[LikeViewResponse]{Data: newLikeViewResponses(views), NextPageToken: next})
}

func (h *Handler) CountLikesReceived(c *gin.Context) {
	n, err := h.matches.CountLikesReceived(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}
