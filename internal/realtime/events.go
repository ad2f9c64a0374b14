package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
)

// Inbound events.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
)

// Outbound events.
const (
	EventReceiveMessage = "receiveMessage"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventMatchRemoved   = "matchRemoved"
	EventError          = "error"
)

// Conn is one authenticated client connection, whatever the transport.
// UserID is fixed at handshake time.
type Conn interface {
	ID() string
	UserID() uint64
	Emit(event string, data any) error
}

// MessagePayload is the wire shape of a persisted chat message.
type MessagePayload struct {
	ID        uint64    `json:"id"`
	MatchID   uint64    `json:"match_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessagePayload(m db.Message) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		MatchID:   m.MatchID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// RoomPayload acknowledges room membership changes.
type RoomPayload struct {
	MatchID uint64 `json:"match_id"`
}

// ErrorPayload is delivered to the offending connection only.
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
	MatchID uint64 `json:"match_id,omitempty"`
}

func newErrorPayload(event string, matchID uint64, err error) ErrorPayload {
	return ErrorPayload{
		Event:   event,
		Code:    svcErr.Code(err),
		Message: svcErr.Message(err),
		MatchID: matchID,
	}
}

// ParseMatchID accepts ids as JSON numbers or decimal strings.
func ParseMatchID(v any) (uint64, error) {
	var (
		id  uint64
		err error
	)
	switch t := v.(type) {
	case float64:
		if t < 1 || t != float64(uint64(t)) {
			return 0, svcErr.InvalidArgument("match id must be a positive integer")
		}
		id = uint64(t)
	case json.Number:
		id, err = strconv.ParseUint(t.String(), 10, 64)
	case string:
		id, err = strconv.ParseUint(strings.TrimSpace(t), 10, 64)
	case uint64:
		id = t
	case int:
		if t > 0 {
			id = uint64(t)
		}
	default:
		return 0, svcErr.InvalidArgument(fmt.Sprintf("match id has unsupported type %T", v))
	}
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument("match id must be a positive integer")
	}
	return id, nil
}
