package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
)

// ChatStore is the slice of the chat service the channel relies on.
type ChatStore interface {
	Membership(ctx context.Context, userID, matchID uint64) (*db.Match, error)
	Send(ctx context.Context, senderID, matchID uint64, content string) (*db.Message, error)
}

// Channel is the realtime delivery channel: room membership, message relay
// and scoped error reporting on top of a Hub and a Broker.
//
// Membership is always read from the store, never from the Hub, so an
// unmatch takes effect on the next call without any cache to invalidate.
type Channel struct {
	hub    *Hub
	broker Broker
	chat   ChatStore
	tokens auth.Verifier
	log    *slog.Logger
}

func NewChannel(hub *Hub, broker Broker, chat ChatStore, tokens auth.Verifier, log *slog.Logger) *Channel {
	return &Channel{hub: hub, broker: broker, chat: chat, tokens: tokens, log: log}
}

func (ch *Channel) Hub() *Hub { return ch.hub }

// Authenticate resolves a handshake token into the connection's user id.
func (ch *Channel) Authenticate(token string) (uint64, error) {
	if token == "" {
		return 0, svcErr.Unauthenticated("no token provided")
	}
	userID, err := ch.tokens.Verify(token)
	if err != nil {
		return 0, svcErr.Unauthenticated("invalid or expired token")
	}
	return userID, nil
}

// Join adds c to the match room.
//
// Behavior:
//   - Unknown match → scoped error event (not_found), c is not added.
//   - c's user is not a member → scoped error event (forbidden), c is not added.
//   - Otherwise c is added (joining twice is a no-op) and gets a joined event.
//
// The returned error mirrors the scoped error event.
func (ch *Channel) Join(ctx context.Context, c Conn, matchID uint64) error {
	if _, err := ch.chat.Membership(ctx, c.UserID(), matchID); err != nil {
		ch.EmitError(c, EventJoinRoom, matchID, err)
		return err
	}

	if ch.hub.Join(matchID, c) {
		ch.log.Debug("joined room", "conn", c.ID(), "user", c.UserID(), "match_id", matchID)
	}
	ch.emit(c, EventJoined, RoomPayload{MatchID: matchID})
	return nil
}

// Leave removes c from the room. Leaving a room c never joined is a no-op.
func (ch *Channel) Leave(c Conn, matchID uint64) {
	if ch.hub.Leave(matchID, c) {
		ch.emit(c, EventLeft, RoomPayload{MatchID: matchID})
	}
}

// Relay publishes an already persisted message to the match room.
//
// Behavior:
//   - The sender's membership is re-validated against the store.
//   - Every connection joined to the room receives receiveMessage, the
//     sender's own connections included, in the order Relay was called.
//   - Nothing is replayed to connections that join later.
func (ch *Channel) Relay(ctx context.Context, senderID, matchID uint64, msg *db.Message) error {
	if msg == nil || msg.MatchID != matchID || msg.SenderID != senderID {
		return svcErr.InvalidArgument("message does not belong to this match and sender")
	}
	if _, err := ch.chat.Membership(ctx, senderID, matchID); err != nil {
		return err
	}

	if err := ch.broker.Publish(ctx, matchID, EventReceiveMessage, NewMessagePayload(*msg)); err != nil {
		ch.log.Error("relay publish failed", "match_id", matchID, "message_id", msg.ID, "err", err)
		return svcErr.Unavailable("could not deliver message")
	}
	return nil
}

// SendMessage handles a message sent over the socket: persist, then relay.
// Failures are reported to c only.
func (ch *Channel) SendMessage(ctx context.Context, c Conn, matchID uint64, content string) error {
	msg, err := ch.chat.Send(ctx, c.UserID(), matchID, content)
	if err != nil {
		ch.EmitError(c, EventSendMessage, matchID, err)
		return err
	}
	if err := ch.Relay(ctx, c.UserID(), matchID, msg); err != nil {
		ch.EmitError(c, EventSendMessage, matchID, err)
		return err
	}
	return nil
}

// CloseRoom tells everyone in the room the match is gone and empties it.
func (ch *Channel) CloseRoom(ctx context.Context, matchID uint64) error {
	if err := ch.broker.Publish(ctx, matchID, EventMatchRemoved, RoomPayload{MatchID: matchID}); err != nil {
		ch.log.Error("close room publish failed", "match_id", matchID, "err", err)
		return svcErr.Unavailable("could not close room")
	}
	return nil
}

// Disconnect removes c from every room.
func (ch *Channel) Disconnect(c Conn) {
	rooms := ch.hub.LeaveAll(c)
	ch.log.Debug("connection closed", "conn", c.ID(), "user", c.UserID(), "rooms", len(rooms))
}

// EmitError reports err to c alone as an error event.
func (ch *Channel) EmitError(c Conn, event string, matchID uint64, err error) {
	if !isTaxonomy(err) {
		ch.log.Error("realtime operation failed", "conn", c.ID(), "event", event, "match_id", matchID, "err", err)
	}
	ch.emit(c, EventError, newErrorPayload(event, matchID, err))
}

func (ch *Channel) emit(c Conn, event string, data any) {
	if err := c.Emit(event, data); err != nil {
		ch.log.Warn("realtime emit failed", "conn", c.ID(), "event", event, "err", err)
	}
}

func isTaxonomy(err error) bool {
	for _, target := range []error{
		svcErr.ErrNotFound, svcErr.ErrConflict, svcErr.ErrForbidden,
		svcErr.ErrUnauthenticated, svcErr.ErrInvalidArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
