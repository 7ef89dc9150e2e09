// Package gamecount tracks the number of active games and fans that count
// out to invite subscribers (spec §4.4).
package gamecount

import "sync/atomic"

// Subscriber is notified of the new count whenever it changes via
// Decrement. Increment does not broadcast: the invite manager already
// broadcasts the count on invite acceptance (spec §4.4).
type Subscriber interface {
	BroadcastGameCount(count int64)
}

// Counter is the process-wide GameCount singleton.
type Counter struct {
	n    atomic.Int64
	subs Subscriber
}

// New builds a Counter that fans decrements out to subs. subs may be nil
// in tests that don't care about the broadcast.
func New(subs Subscriber) *Counter {
	return &Counter{subs: subs}
}

// Increment bumps the active game count without broadcasting.
func (c *Counter) Increment() {
	c.n.Add(1)
}

// Decrement lowers the active game count and broadcasts "gamecount" to
// every invite subscriber.
func (c *Counter) Decrement() {
	n := c.n.Add(-1)
	if c.subs != nil {
		c.subs.BroadcastGameCount(n)
	}
}

// Load returns the current active game count.
func (c *Counter) Load() int64 {
	return c.n.Load()
}
