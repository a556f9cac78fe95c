package recorderfake

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goforj/recorder"
)

// Handler answers a call on the fake connection.
type Handler func(ctx context.Context, params recorder.Kwargs) (recorder.Kwargs, error)

// Connection is a scripted recorder.Invoker that counts calls per function.
// It stands in for a live connection so tests can verify that replayed
// calls never reach it.
type Connection struct {
	id       string
	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
}

// NewConnection creates a fake connection identified by id.
func NewConnection(id string) *Connection {
	return &Connection{
		id:       id,
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
}

// ID implements the identity hook used by recorder.ConnectionID.
func (c *Connection) ID() string { return c.id }

// Handle registers the handler for function.
func (c *Connection) Handle(function string, h Handler) *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[function] = h
	return c
}

// Call implements recorder.Invoker. Unknown functions fail.
func (c *Connection) Call(ctx context.Context, function string, params recorder.Kwargs) (recorder.Kwargs, error) {
	c.mu.Lock()
	c.calls[function]++
	h := c.handlers[function]
	c.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("fake connection %s: function %s not found", c.id, function)
	}
	return h(ctx, params)
}

// Calls returns how many times function reached the connection.
func (c *Connection) Calls(function string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[function]
}

// AssertCalls verifies function reached the connection times times.
func (c *Connection) AssertCalls(t *testing.T, function string, times int) {
	t.Helper()
	if got := c.Calls(function); got != times {
		t.Fatalf("expected %s called %d times on %s, got %d", function, times, c.id, got)
	}
}
