package cart

import (
	"sync"
	"time"
)

// IDGenerator issues line IDs based on the wall clock in Unix milliseconds.
// IDs are strictly increasing within a process, so two lines created in the
// same millisecond never collide.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator creates a generator driven by time.Now.
func NewIDGenerator() *IDGenerator {
	return NewIDGeneratorWithClock(time.Now)
}

// NewIDGeneratorWithClock creates a generator driven by the given clock.
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns a new line ID greater than every ID issued or observed so far.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe advances the generator past every line ID in c.
// Call it after rehydrating a cart so new lines cannot reuse stored IDs.
func (g *IDGenerator) Observe(c Cart) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, item := range c.Items {
		if item.ID > g.last {
			g.last = item.ID
		}
	}
}
