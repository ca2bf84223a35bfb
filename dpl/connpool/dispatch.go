package connpool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Endpoint is one entry in a context's target list.
type Endpoint struct {
	Host string
	Port string

	mu               sync.Mutex
	blacklistedUntil time.Time
}

// Blacklisted reports whether this endpoint should currently be skipped.
func (e *Endpoint) Blacklisted(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Before(e.blacklistedUntil)
}

// Blacklist marks this endpoint unusable until now+window.
func (e *Endpoint) Blacklist(now time.Time, window time.Duration) {
	e.mu.Lock()
	e.blacklistedUntil = now.Add(window)
	e.mu.Unlock()
}

// Dispatcher resolves a logical host selection per request — round-robin
// over a context's endpoint list, skipping blacklisted hosts — and hands
// back a usable, checked-out connection. It owns the Pool that backs it.
type Dispatcher struct {
	pool      *Pool
	endpoints []*Endpoint
	next      uint64 // monotonic round-robin index, per spec.md §5 "strictly monotonic"

	BlacklistWindow time.Duration
	metrics         *Metrics
}

// NewDispatcher builds a dispatcher over endpoints, backed by pool.
func NewDispatcher(pool *Pool, endpoints []*Endpoint, blacklistWindow time.Duration, metrics *Metrics) *Dispatcher {
	return &Dispatcher{pool: pool, endpoints: endpoints, BlacklistWindow: blacklistWindow, metrics: metrics}
}

// Host is the result of a dispatch: the connection to use and the
// logical host name to put in the Host header (which differs from the
// connection address under virtual-hosting).
type Host struct {
	Conn     *Conn
	HostName string
	Endpoint *Endpoint
}

// Options controls one dispatch attempt.
type Options struct {
	VirtualHosting bool
	Bucket         string // used to build "<bucket>.<host>" under virtual-hosting
}

// ErrAllEndpointsExhausted is returned once every endpoint has been tried
// and failed (blacklisted or unreachable).
var ErrAllEndpointsExhausted = fmt.Errorf("connpool: all endpoints exhausted")

// TryConnect implements try_connect from spec.md §4.3: pick the next host
// round-robin, skipping blacklisted ones, and hand back a usable
// connection. On dial failure with virtual-hosting disabled, the host is
// blacklisted and the next endpoint is tried; with virtual-hosting enabled
// the failure surfaces immediately, since blacklisting a bucket-specific
// hostname isn't meaningful.
func (d *Dispatcher) TryConnect(ctx context.Context, opts Options) (*Host, error) {
	if len(d.endpoints) == 0 {
		return nil, fmt.Errorf("connpool: no endpoints configured")
	}

	now := time.Now()
	tried := 0
	for tried < len(d.endpoints) {
		ep := d.nextEndpoint()
		tried++
		if ep.Blacklisted(now) {
			continue
		}

		hostName := ep.Host
		if opts.VirtualHosting && opts.Bucket != "" {
			hostName = opts.Bucket + "." + ep.Host
		}
		addr := net.JoinHostPort(ep.Host, ep.Port)

		conn, err := d.pool.CheckOut(ctx, addr)
		if err != nil {
			if err == ErrPoolFull {
				return nil, err
			}
			if opts.VirtualHosting {
				if glog.V(2) {
					glog.Warningf("connpool: connect to %s failed (virtual-hosting, not blacklisting): %v", addr, err)
				}
				return nil, err
			}
			ep.Blacklist(now, d.BlacklistWindow)
			d.metrics.incBlacklist()
			if glog.V(2) {
				glog.Warningf("connpool: connect to %s failed, blacklisting for %s: %v", addr, d.BlacklistWindow, err)
			}
			continue
		}
		return &Host{Conn: conn, HostName: hostName, Endpoint: ep}, nil
	}
	return nil, ErrAllEndpointsExhausted
}

func (d *Dispatcher) nextEndpoint() *Endpoint {
	i := atomic.AddUint64(&d.next, 1) - 1
	return d.endpoints[int(i)%len(d.endpoints)]
}

// BlacklistOnFailure blacklists the endpoint a connection belonged to;
// called by the caller after a transient network or 5xx failure per
// spec.md §7, instead of Release.
func (d *Dispatcher) BlacklistOnFailure(h *Host) {
	h.Endpoint.Blacklist(time.Now(), d.BlacklistWindow)
	d.metrics.incBlacklist()
}
