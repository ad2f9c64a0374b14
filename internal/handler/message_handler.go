package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/realtime"
)

func (h *Handler) Conversations(c *gin.Context) {
	convs, err := h.chat.Conversations(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, newConversationResponse(conv))
	}
	c.JSON(http.StatusOK, out)
}

// History returns the match's messages oldest first.
func (h *Handler) History(c *gin.Context) {
	matchID, err := idParam(c, "matchId")
	if err != nil {
		h.fail(c, err)
		return
	}

	msgs, err := h.chat.History(c.Request.Context(), auth.UserID(c), matchID)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]realtime.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, realtime.NewMessagePayload(m))
	}
	c.JSON(http.StatusOK, out)
}

// SendMessage persists a message and relays it to the match room.
// POST /api/messages/:matchId → 201 MessagePayload
//
// The message is stored before relaying. A relay failure is only logged.
func (h *Handler) SendMessage(c *gin.Context) {
	matchID, err := idParam(c, "matchId")
	if err != nil {
		h.fail(c, err)
		return
	}
	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	senderID := auth.UserID(c)
	msg, err := h.chat.Send(ctx, senderID, matchID, input.Content)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.channel.Relay(ctx, senderID, matchID, msg); err != nil {
		logger.FromContext(ctx, h.appCtx.Logger).Warn("relay failed", "match_id", matchID, "message_id", msg.ID, "err", err)
	}
	c.JSON(http.StatusCreated, realtime.NewMessagePayload(*msg))
}
