package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oggyb/matchchat/internal/auth"
	svcErr "github.com/oggyb/matchchat/internal/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
	handleTimeout  = 10 * time.Second
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrSlowClient = errors.New("client send buffer full")
)

// Frame is the websocket wire format in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type roomRequest struct {
	MatchID any `json:"match_id"`
}

type sendRequest struct {
	MatchID any    `json:"match_id"`
	Content string `json:"content"`
}

// WSHandler upgrades authenticated requests to websocket connections
// attached to the Channel.
type WSHandler struct {
	channel  *Channel
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	pumps   sync.WaitGroup
}

// NewWSHandler builds the /ws endpoint. An empty or "*" origin list accepts
// any origin.
func NewWSHandler(channel *Channel, allowedOrigins []string, log *slog.Logger) *WSHandler {
	return &WSHandler{
		channel: channel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP rejects the handshake with 401 before upgrading when the token
// is missing or invalid.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	userID, err := h.channel.Authenticate(token)
	if err != nil {
		http.Error(w, svcErr.Message(err), http.StatusUnauthorized)
		return
	}
	if h.isClosed() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.log.Warn("websocket upgrade failed", "user", userID, "err", err)
		return
	}

	c := &wsClient{
		id:      uuid.NewString(),
		userID:  userID,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		channel: h.channel,
		handler: h,
		log:     h.log,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"),
			time.Now().Add(writeWait))
		ws.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.pumps.Add(2)
	h.mu.Unlock()
	h.log.Debug("websocket connected", "conn", c.id, "user", userID)

	go func() {
		defer h.pumps.Done()
		c.writePump()
	}()
	go func() {
		defer h.pumps.Done()
		c.readPump()
	}()
}

// Close stops accepting connections, closes every open one and waits for
// their pumps to finish or ctx to end.
func (h *WSHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of open connections.
func (h *WSHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *WSHandler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *WSHandler) forget(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// wsClient is a Conn backed by a gorilla websocket.
type wsClient struct {
	id     string
	userID uint64
	ws     *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
	done      chan struct{}

	channel *Channel
	handler *WSHandler
	log     *slog.Logger
}

func (c *wsClient) ID() string     { return c.id }
func (c *wsClient) UserID() uint64 { return c.userID }

// Emit queues a frame without blocking. A full buffer drops the frame
// and keeps the connection open.
func (c *wsClient) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Event: event, Data: raw})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowClient
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump pumps frames from the websocket connection to the Channel.
func (c *wsClient) readPump() {
	defer func() {
		c.channel.Disconnect(c)
		c.handler.forget(c)
		c.close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "conn", c.id, "err", err)
			}
			return
		}
		c.handle(message)
	}
}

// handle dispatches a single inbound frame. Problems are reported back to
// this connection as error events and never end the read loop.
func (c *wsClient) handle(message []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.channel.EmitError(c, "", 0, svcErr.InvalidArgument("malformed frame"))
		return
	}

	switch frame.Event {
	case EventJoinRoom, EventLeaveRoom:
		var req roomRequest
		if err := decodeData(frame.Data, &req); err != nil {
			c.channel.EmitError(c, frame.Event, 0, svcErr.InvalidArgument("malformed payload"))
			return
		}
		matchID, err := ParseMatchID(req.MatchID)
		if err != nil {
			c.channel.EmitError(c, frame.Event, 0, err)
			return
		}
		if frame.Event == EventJoinRoom {
			_ = c.channel.Join(ctx, c, matchID)
		} else {
			c.channel.Leave(c, matchID)
		}

	case EventSendMessage:
		var req sendRequest
		if err := decodeData(frame.Data, &req); err != nil {
			c.channel.EmitError(c, frame.Event, 0, svcErr.InvalidArgument("malformed payload"))
			return
		}
		matchID, err := ParseMatchID(req.MatchID)
		if err != nil {
			c.channel.EmitError(c, frame.Event, 0, err)
			return
		}
		_ = c.channel.SendMessage(ctx, c, matchID, req.Content)

	default:
		c.channel.EmitError(c, frame.Event, 0, svcErr.InvalidArgument("unknown event"))
	}
}

// writePump pumps queued frames to the websocket connection and keeps it
// alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// decodeData keeps numeric ids as json.Number so large ids survive.
func decodeData(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
