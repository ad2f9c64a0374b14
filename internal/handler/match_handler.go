package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/logger"
)

func (h *Handler) ListMatches(c *gin.Context) {
	views, err := h.matches.ListMatches(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]MatchViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, MatchViewResponse{Match: newMatchResponse(v.Match), Partner: newProfileResponse(v.Partner)})
	}
	c.JSON(http.StatusOK, out)
}

// Unmatch deletes the match and tells connected members the room is gone.
// DELETE /api/matches/:matchId → 204
func (h *Handler) Unmatch(c *gin.Context) {
	matchID, err := idParam(c, "matchId")
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.matches.Unmatch(ctx, matchID, auth.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}

	// the match is already gone; a failed notification only leaves stale room entries
	if err := h.channel.CloseRoom(ctx, matchID); err != nil {
		logger.FromContext(ctx, h.appCtx.Logger).Warn("close room failed", "match_id", matchID, "err", err)
	}
	c.Status(http.StatusNoContent)
}
