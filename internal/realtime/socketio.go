package realtime

import (
	"context"
	"log/slog"
	"sync"

	socketio "github.com/googollee/go-socket.io"

	"github.com/oggyb/matchchat/internal/auth"
	svcErr "github.com/oggyb/matchchat/internal/errors"
)

// sioConn is a Conn backed by a socket.io connection. Room membership lives
// in the Hub, not in socket.io rooms, so every transport shares one view.
//
// socket.io's Emit blocks until the client picks the packet up, so events
// go through a buffered queue drained by pump.
type sioConn struct {
	conn   socketio.Conn
	userID uint64
	send   chan sioEvent

	closeOnce sync.Once
	done      chan struct{}
}

type sioEvent struct {
	name string
	data any
}

func newSIOConn(conn socketio.Conn, userID uint64) *sioConn {
	c := &sioConn{
		conn:   conn,
		userID: userID,
		send:   make(chan sioEvent, sendBuffer),
		done:   make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *sioConn) ID() string     { return "sio-" + c.conn.ID() }
func (c *sioConn) UserID() uint64 { return c.userID }

// Emit queues an event without blocking. A full queue drops the event and
// keeps the connection open.
func (c *sioConn) Emit(event string, data any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- sioEvent{name: event, data: data}:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowClient
	}
}

func (c *sioConn) pump() {
	for {
		select {
		case ev := <-c.send:
			c.conn.Emit(ev.name, ev.data)
		case <-c.done:
			return
		}
	}
}

func (c *sioConn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// NewSocketIOServer exposes the Channel to socket.io clients.
//
// Clients pass the token as ?token= on the handshake URL (or a bearer
// header); a bad token fails the connect. Events mirror the websocket
// transport: joinRoom(matchId), leaveRoom(matchId) and
// sendMessage({match_id, content}).
//
// The caller runs Serve and Close on the returned server.
func NewSocketIOServer(channel *Channel, log *slog.Logger) *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(s socketio.Conn) error {
		u := s.URL()
		token := u.Query().Get("token")
		if token == "" {
			token = auth.BearerToken(s.RemoteHeader().Get("Authorization"))
		}
		userID, err := channel.Authenticate(token)
		if err != nil {
			log.Debug("socket.io handshake rejected", "remote", s.RemoteAddr().String())
			return err
		}
		s.SetContext(newSIOConn(s, userID))
		log.Debug("socket.io connected", "sid", s.ID(), "user", userID)
		return nil
	})

	server.OnEvent("/", EventJoinRoom, func(s socketio.Conn, raw interface{}) {
		c := authenticated(s)
		if c == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		matchID, err := ParseMatchID(raw)
		if err != nil {
			channel.EmitError(c, EventJoinRoom, 0, err)
			return
		}
		_ = channel.Join(ctx, c, matchID)
	})

	server.OnEvent("/", EventLeaveRoom, func(s socketio.Conn, raw interface{}) {
		c := authenticated(s)
		if c == nil {
			return
		}
		matchID, err := ParseMatchID(raw)
		if err != nil {
			channel.EmitError(c, EventLeaveRoom, 0, err)
			return
		}
		channel.Leave(c, matchID)
	})

	server.OnEvent("/", EventSendMessage, func(s socketio.Conn, msg map[string]interface{}) {
		c := authenticated(s)
		if c == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		rawID, ok := msg["match_id"]
		if !ok {
			rawID = msg["matchId"]
		}
		matchID, err := ParseMatchID(rawID)
		if err != nil {
			channel.EmitError(c, EventSendMessage, 0, err)
			return
		}
		content, _ := msg["content"].(string)
		_ = channel.SendMessage(ctx, c, matchID, content)
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		if s == nil {
			log.Warn("socket.io error", "err", err)
			return
		}
		log.Warn("socket.io error", "sid", s.ID(), "err", err)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if c, ok := s.Context().(*sioConn); ok && c != nil {
			channel.Disconnect(c)
			c.close()
		}
		log.Debug("socket.io disconnected", "sid", s.ID(), "reason", reason)
	})

	return server
}

// authenticated returns the Conn set at handshake, closing connections
// that somehow got past it without one.
func authenticated(s socketio.Conn) *sioConn {
	c, ok := s.Context().(*sioConn)
	if !ok || c == nil {
		s.Emit(EventError, newErrorPayload("", 0, svcErr.Unauthenticated("not authenticated")))
		_ = s.Close()
		return nil
	}
	return c
}
