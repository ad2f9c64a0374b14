package realtime

import (
	"log/slog"
	"sync"
)

// Hub tracks which connections are joined to which match rooms and fans
// events out to them. It only knows about connections of this process.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint64]map[string]Conn
	conns map[string]map[uint64]struct{}

	// serializes deliveries so every member sees one room order
	deliverMu sync.Mutex

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms: make(map[uint64]map[string]Conn),
		conns: make(map[string]map[uint64]struct{}),
		log:   log,
	}
}

// Join adds c to the room. It reports false when c was already a member.
func (h *Hub) Join(matchID uint64, c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[matchID]
	if !ok {
		members = make(map[string]Conn)
		h.rooms[matchID] = members
	}
	if _, ok := members[c.ID()]; ok {
		return false
	}
	members[c.ID()] = c

	joined, ok := h.conns[c.ID()]
	if !ok {
		joined = make(map[uint64]struct{})
		h.conns[c.ID()] = joined
	}
	joined[matchID] = struct{}{}
	return true
}

// Leave removes c from the room. It reports whether c was a member.
func (h *Hub) Leave(matchID uint64, c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(matchID, c.ID())
}

// LeaveAll removes c from every room and returns the rooms it left.
func (h *Hub) LeaveAll(c Conn) []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []uint64
	for matchID := range h.conns[c.ID()] {
		if h.leaveLocked(matchID, c.ID()) {
			left = append(left, matchID)
		}
	}
	delete(h.conns, c.ID())
	return left
}

// CloseRoom drops the room and returns the connections that were in it.
func (h *Hub) CloseRoom(matchID uint64) []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[matchID]
	out := make([]Conn, 0, len(members))
	for id, c := range members {
		out = append(out, c)
		h.leaveLocked(matchID, id)
	}
	return out
}

// Members returns a snapshot of the room.
func (h *Hub) Members(matchID uint64) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[matchID]
	out := make([]Conn, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// IsMember reports whether c is joined to the room.
func (h *Hub) IsMember(matchID uint64, c Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[matchID][c.ID()]
	return ok
}

// Rooms returns the rooms c is joined to.
func (h *Hub) Rooms(c Conn) []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]uint64, 0, len(h.conns[c.ID()]))
	for matchID := range h.conns[c.ID()] {
		out = append(out, matchID)
	}
	return out
}

// Deliver emits the event to every connection joined to the room and
// returns how many accepted it. A matchRemoved event also drops the room.
// Emit failures are logged and never reach other members.
func (h *Hub) Deliver(matchID uint64, event string, data any) int {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	members := h.Members(matchID)
	if event == EventMatchRemoved {
		h.CloseRoom(matchID)
	}

	delivered := 0
	for _, c := range members {
		if err := c.Emit(event, data); err != nil {
			h.log.Warn("realtime emit failed", "conn", c.ID(), "user", c.UserID(), "match_id", matchID, "event", event, "err", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) leaveLocked(matchID uint64, connID string) bool {
	members, ok := h.rooms[matchID]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, matchID)
	}
	if joined, ok := h.conns[connID]; ok {
		delete(joined, matchID)
		if len(joined) == 0 {
			delete(h.conns, connID)
		}
	}
	return true
}
