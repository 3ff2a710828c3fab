package fanout_test

import (
	"encoding/json"
	"sync"

	"paidreply/backend/internal/models"
)

type mockConn struct {
	id string

	mu       sync.Mutex
	open     bool
	received [][]byte
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id, open: true}
}

func (c *mockConn) ID() string { return c.id }

func (c *mockConn) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false
	}
	c.received = append(c.received, data)
	return true
}

func (c *mockConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *mockConn) Run() {}

func (c *mockConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

// events decodes everything the connection received so far.
func (c *mockConn) events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Event, 0, len(c.received))
	for _, data := range c.received {
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}
