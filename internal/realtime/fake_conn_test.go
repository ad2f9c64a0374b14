package realtime

import (
	"errors"
	"fmt"
	"sync"
)

type recorded struct {
	Event string
	Data  any
}

// fakeConn records everything emitted to it.
type fakeConn struct {
	id     string
	userID uint64
	fail   bool

	mu     sync.Mutex
	events []recorded
}

func newFakeConn(userID uint64) *fakeConn {
	return &fakeConn{id: fmt.Sprintf("fake-%d", userID), userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() uint64 { return c.userID }

func (c *fakeConn) Emit(event string, data any) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recorded{Event: event, Data: data})
	return nil
}

func (c *fakeConn) Events() []recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recorded(nil), c.events...)
}

// Named returns the payloads of every event with the given name.
func (c *fakeConn) Named(event string) []any {
	var out []any
	for _, e := range c.Events() {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}
