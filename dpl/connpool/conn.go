// Package connpool maintains a bounded set of idle, reusable connections
// keyed by their "host:port" address, and a host dispatcher that round-robins
// across a context's endpoint list, blacklisting hosts that fail.
package connpool

import (
	"net"
	"time"
)

// Conn is one pooled connection. It sits on a pool bucket's chain while
// idle and is exclusively owned by a caller between check-out and release;
// per spec.md §3's invariant, a Conn is never simultaneously on a bucket
// chain and checked out.
type Conn struct {
	net.Conn
	addr    string // host:port this connection is bound to
	slot    int    // bucket index, kept so Release doesn't need to rehash
	created time.Time
	lastUse time.Time
	hits    int

	next *Conn // singly-linked within the bucket's chain
}

// Addr returns the host:port this connection was dialed to.
func (c *Conn) Addr() string { return c.addr }

// Hits returns the number of times this connection has been reused from
// the pool; a freshly dialed connection has 0.
func (c *Conn) Hits() int { return c.hits }

// idleFor reports how long this connection has sat idle in the pool, as of
// now.
func (c *Conn) idleFor(now time.Time) time.Duration {
	return now.Sub(c.lastUse)
}
