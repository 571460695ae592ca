package session

import (
	"sync"
	"time"
)

// Clock is the session's simulated time, advanced only by Tick.
type Clock struct {
	mu  sync.RWMutex
	now time.Duration
}

// Now returns the elapsed session time
func (c *Clock) Now() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *Clock) advance(dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += dt
}

func (c *Clock) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}
