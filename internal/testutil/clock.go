package testutil

import (
	"fmt"
	"time"
)

// FixedClock returns a settable time, so tests control every timestamp.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// SeqIDGenerator produces "id-1", "id-2", ... in order.
type SeqIDGenerator struct {
	n int
}

func (g *SeqIDGenerator) New() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}
