package connpool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"
)

// Config bounds the pool: how many buckets back the hashtable, how many
// live sockets may exist at once, and the idle/hit-count eviction window.
type Config struct {
	NBuckets       int // hashtable slot count; 0 defaults to 64
	MaxConns       int // n_conn_max; 0 means unbounded
	MaxHits        int // n_conn_max_hits; 0 means unbounded reuse
	IdleTTL        time.Duration
	ConnectTimeout time.Duration
	UseTLS         bool
	SkipVerify     bool
}

func (c Config) withDefaults() Config {
	if c.NBuckets <= 0 {
		c.NBuckets = 64
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// Dialer opens a new connection to addr ("host:port"). It's supplied by the
// caller (normally dpl/wire.Dial) so the pool stays transport-agnostic.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

// Pool is a fixed-bucket-count hashtable of idle connections keyed by the
// "host:port" string passed to CheckOut, per spec.md §4.3. Host names are
// not resolved before hashing, so two names for the same address use
// separate entries. One Pool belongs to one
// Context; all mutation happens under its mutex.
type Pool struct {
	mu       sync.Mutex
	cfg      Config
	buckets  []*Conn
	nConnFDs int
	resolve  singleflight.Group
	metrics  *Metrics
	dial     Dialer
}

// NewPool constructs a pool that dials new connections with dial.
func NewPool(cfg Config, dial Dialer, metrics *Metrics) *Pool {
	cfg = cfg.withDefaults()
	return &Pool{
		cfg:     cfg,
		buckets: make([]*Conn, cfg.NBuckets),
		dial:    dial,
		metrics: metrics,
	}
}

func slot(addr string, nBuckets int) int {
	h := xxhash.ChecksumString64(addr)
	return int(h % uint64(nBuckets))
}

// ErrPoolFull is returned by CheckOut when n_conn_fds has reached
// n_conn_max and no idle connection could be reused.
var ErrPoolFull = fmt.Errorf("connpool: pool full")

// CheckOut returns a ready-to-use connection to addr ("host:port"),
// reusing an idle one from the matching bucket when possible. A connection
// returned here is removed from the pool until Release or Terminate is
// called on it.
func (p *Pool) CheckOut(ctx context.Context, addr string) (*Conn, error) {
	idx := slot(addr, len(p.buckets))

	p.mu.Lock()
	var prev *Conn
	cur := p.buckets[idx]
	for cur != nil {
		if cur.addr != addr {
			prev = cur
			cur = cur.next
			continue
		}
		// Found a candidate for this addr; unlink it first so a failed
		// probe/expiry check can't leave it double-owned.
		if prev == nil {
			p.buckets[idx] = cur.next
		} else {
			prev.next = cur.next
		}
		cur.next = nil
		now := time.Now()
		if !probeUsable(cur) {
			p.destroyLocked(cur)
			p.mu.Unlock()
			if glog.V(4) {
				glog.Infof("connpool: discarding dead idle connection to %s", addr)
			}
			return p.CheckOut(ctx, addr) // retry: other entries may remain in the chain
		}
		if p.cfg.MaxHits > 0 && cur.hits >= p.cfg.MaxHits {
			p.destroyLocked(cur)
			p.mu.Unlock()
			return p.CheckOut(ctx, addr)
		}
		if p.cfg.IdleTTL > 0 && cur.idleFor(now) > p.cfg.IdleTTL {
			p.destroyLocked(cur)
			p.mu.Unlock()
			return p.CheckOut(ctx, addr)
		}
		cur.hits++
		p.metrics.incHit()
		p.mu.Unlock()
		return cur, nil
	}

	// No reusable idle connection. Reserve capacity before dialing so two
	// concurrent misses can't both sneak past n_conn_max.
	if p.cfg.MaxConns > 0 && p.nConnFDs >= p.cfg.MaxConns {
		p.mu.Unlock()
		p.metrics.incPoolFull()
		return nil, ErrPoolFull
	}
	p.nConnFDs++
	p.mu.Unlock()

	p.metrics.incMiss()
	nc, err := p.dial(ctx, addr)
	if err != nil {
		p.mu.Lock()
		p.nConnFDs--
		p.mu.Unlock()
		return nil, err
	}
	p.metrics.incCreated()
	now := time.Now()
	return &Conn{Conn: nc, addr: addr, slot: idx, created: now, lastUse: now}, nil
}

// Release returns a connection to its bucket for reuse.
func (p *Pool) Release(c *Conn) {
	c.lastUse = time.Now()
	p.mu.Lock()
	c.next = p.buckets[c.slot]
	p.buckets[c.slot] = c
	p.mu.Unlock()
}

// Terminate closes a connection and removes it from the live-socket count.
// Mandatory after any I/O error, a 5xx reply, or an explicit
// Connection: close, per spec.md §7.
func (p *Pool) Terminate(c *Conn) {
	p.mu.Lock()
	p.destroyLocked(c)
	p.mu.Unlock()
}

// destroyLocked closes c and decrements the live count. Must be called
// with p.mu held; c must already be unlinked from any bucket chain.
func (p *Pool) destroyLocked(c *Conn) {
	c.Close()
	p.nConnFDs--
	p.metrics.incDestroyed()
}

// LiveConns reports n_conn_fds: live sockets, idle or checked out.
func (p *Pool) LiveConns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nConnFDs
}

// bucketLen returns the chain length at idx, for tests asserting the
// hash(addr,port) mod n_buckets invariant.
func (p *Pool) bucketLen(idx int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for c := p.buckets[idx]; c != nil; c = c.next {
		n++
	}
	return n
}

// ResolveShared resolves host:port via net.ResolveTCPAddr, collapsing
// concurrent first-time resolutions of the same addr into a single lookup.
// Dial implementations may call this instead of resolving independently;
// it shares only the address-record lookup, never connection ownership.
func (p *Pool) ResolveShared(network, addr string) (*net.TCPAddr, error) {
	v, err, _ := p.resolve.Do(addr, func() (interface{}, error) {
		return net.ResolveTCPAddr(network, addr)
	})
	if err != nil {
		return nil, err
	}
	return v.(*net.TCPAddr), nil
}
