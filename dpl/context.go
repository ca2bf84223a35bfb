package dpl

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scality/droplet-go/dpl/connpool"
	"github.com/scality/droplet-go/dpl/wire"
)

// SigningVersion selects which AWS signature scheme a Context signs with.
type SigningVersion int

const (
	SigningV2 SigningVersion = 2
	SigningV4 SigningVersion = 4
)

// Credentials holds the access/secret key pair used for signing.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// TransportArgs groups the timeouts and pool-sizing knobs a Context is
// built from, mirroring the teacher's cmn.TransportArgs passed into
// cmn.NewClient, per SPEC_FULL.md §2 "Configuration".
type TransportArgs struct {
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration

	NBuckets        int
	MaxConns        int
	MaxHits         int
	IdleTTL         time.Duration
	BlacklistWindow time.Duration

	UseTLS     bool
	SkipVerify bool
}

func (a TransportArgs) withDefaults() TransportArgs {
	if a.ConnectTimeout <= 0 {
		a.ConnectTimeout = 10 * time.Second
	}
	if a.WriteTimeout <= 0 {
		a.WriteTimeout = 30 * time.Second
	}
	if a.ReadTimeout <= 0 {
		a.ReadTimeout = 30 * time.Second
	}
	if a.BlacklistWindow <= 0 {
		a.BlacklistWindow = 30 * time.Second
	}
	return a
}

// Config is everything needed to create a Context, per spec.md §3.
type Config struct {
	Endpoints   []connpool.Endpoint // copied into the context's own endpoint list
	Credentials Credentials
	Region      string
	Signing     SigningVersion
	Delimiter   string
	Transport   TransportArgs
	Backend     Backend

	// MetricsRegisterer, if non-nil, registers the pool/dispatcher counters
	// from dpl/connpool under it (namespaced by MetricsNamespace, "dpl" if
	// empty). Left nil, metrics are disabled (connpool.NewMetrics(nil, "")
	// degrades to a no-op *Metrics), per SPEC_FULL.md §2 "no hidden
	// globals" — a caller opts in by supplying its own registerer.
	MetricsRegisterer prometheus.Registerer
	MetricsNamespace  string
}

// Context is the process/thread-scoped handle described in spec.md §3:
// target endpoints, credentials, signing version, timeouts, pool
// parameters, the path delimiter, per-bucket working directory, and the
// backend vtable. Created once, destroyed once; every Request borrows from
// it. The mutex guards only the per-bucket working-directory map and the
// current bucket — the pool and dispatcher have their own internal locking, per
// spec.md §5's "single mutex per context" scoped to what the original
// actually serializes: pool mutation and the round-robin index.
type Context struct {
	Credentials Credentials
	Region      string
	Signing     SigningVersion
	Delimiter   string
	Transport   TransportArgs
	Backend     Backend

	endpoints  []connpool.Endpoint
	pool       *connpool.Pool
	dispatcher *connpool.Dispatcher
	metrics    *connpool.Metrics

	mu          sync.Mutex
	currentDir  map[string]string // bucket -> current working directory
	currentBkt  string
}

// Endpoints returns the configured target list, in the order given to
// NewContext.
func (c *Context) Endpoints() []connpool.Endpoint {
	return c.endpoints
}

// NewContext constructs a Context and its backing pool/dispatcher from cfg.
func NewContext(cfg Config) (*Context, error) {
	if cfg.Backend == nil {
		return nil, newErr(CodeInval, nil, "new_context: backend is required")
	}
	if len(cfg.Endpoints) == 0 {
		return nil, newErr(CodeInval, nil, "new_context: at least one endpoint is required")
	}
	transport := cfg.Transport.withDefaults()
	delimiter := cfg.Delimiter
	if delimiter == "" {
		delimiter = "/"
	}

	namespace := cfg.MetricsNamespace
	if namespace == "" {
		namespace = "dpl"
	}
	metrics := connpool.NewMetrics(cfg.MetricsRegisterer, namespace)
	poolCfg := connpool.Config{
		NBuckets:       transport.NBuckets,
		MaxConns:       transport.MaxConns,
		MaxHits:        transport.MaxHits,
		IdleTTL:        transport.IdleTTL,
		ConnectTimeout: transport.ConnectTimeout,
		UseTLS:         transport.UseTLS,
		SkipVerify:     transport.SkipVerify,
	}

	c := &Context{
		Credentials: cfg.Credentials,
		Region:      cfg.Region,
		Signing:     cfg.Signing,
		Delimiter:   delimiter,
		Transport:   transport,
		Backend:     cfg.Backend,
		metrics:     metrics,
		currentDir:  make(map[string]string),
		endpoints:   cfg.Endpoints,
	}

	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		return wire.Dial(ctx, wire.DialArgs{
			Addr:           addr,
			ConnectTimeout: transport.ConnectTimeout,
			UseTLS:         transport.UseTLS,
			SkipVerify:     transport.SkipVerify,
		})
	}
	c.pool = connpool.NewPool(poolCfg, dialer, metrics)

	endpoints := make([]*connpool.Endpoint, len(cfg.Endpoints))
	for i := range cfg.Endpoints {
		ep := cfg.Endpoints[i]
		endpoints[i] = &connpool.Endpoint{Host: ep.Host, Port: ep.Port}
	}
	c.dispatcher = connpool.NewDispatcher(c.pool, endpoints, transport.BlacklistWindow, metrics)

	return c, nil
}

// SetWorkingDirectory records the current working directory for bucket,
// guarded by the context mutex per spec.md §3.
func (c *Context) SetWorkingDirectory(bucket, dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentDir[bucket] = dir
}

// WorkingDirectory returns the current working directory for bucket, or
// "" if none was set.
func (c *Context) WorkingDirectory(bucket string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentDir[bucket]
}

// SetCurrentBucket/CurrentBucket track the context's current bucket, per
// spec.md §3.
func (c *Context) SetCurrentBucket(bucket string) {
	c.mu.Lock()
	c.currentBkt = bucket
	c.mu.Unlock()
}

func (c *Context) CurrentBucket() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentBkt
}

// LiveConns exposes the pool's live-socket count, mostly useful to tests
// asserting the n_conn_fds invariant from spec.md §8.
func (c *Context) LiveConns() int {
	return c.pool.LiveConns()
}
