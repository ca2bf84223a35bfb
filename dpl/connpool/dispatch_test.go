package connpool

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestDispatcherBlacklistOnFailure(t *testing.T) {
	failing := map[string]bool{"127.0.0.1:1": true}
	dial := func(ctx context.Context, addr string) (net.Conn, error) {
		if failing[addr] {
			return nil, fmt.Errorf("simulated dial failure")
		}
		c1, c2 := net.Pipe()
		c2.Close()
		return c1, nil
	}
	pool := NewPool(Config{NBuckets: 4}, dial, nil)
	endpoints := []*Endpoint{
		{Host: "127.0.0.1", Port: "1"},
		{Host: "127.0.0.1", Port: "2"},
	}
	d := NewDispatcher(pool, endpoints, time.Minute, nil)

	// First attempt round-robins onto endpoint A (index 0), which fails and
	// gets blacklisted; the dispatcher must fall through to endpoint B.
	h, err := d.TryConnect(context.Background(), Options{})
	if err != nil {
		t.Fatalf("TryConnect: %v", err)
	}
	if h.Endpoint.Port != "2" {
		t.Fatalf("expected dispatch to fall through to endpoint port 2, got %s", h.Endpoint.Port)
	}
	if !endpoints[0].Blacklisted(time.Now()) {
		t.Fatalf("endpoint A should be blacklisted after its connect failure")
	}
	pool.Release(h.Conn)

	// Subsequent calls should keep skipping the blacklisted endpoint.
	h2, err := d.TryConnect(context.Background(), Options{})
	if err != nil {
		t.Fatalf("TryConnect #2: %v", err)
	}
	if h2.Endpoint.Port != "2" {
		t.Fatalf("expected endpoint A to remain blacklisted, got port %s", h2.Endpoint.Port)
	}
	pool.Release(h2.Conn)
}

func TestDispatcherVirtualHostingNoBlacklist(t *testing.T) {
	dial := func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("simulated dial failure")
	}
	pool := NewPool(Config{NBuckets: 4}, dial, nil)
	endpoints := []*Endpoint{{Host: "s3.example.com", Port: "443"}}
	d := NewDispatcher(pool, endpoints, time.Minute, nil)

	_, err := d.TryConnect(context.Background(), Options{VirtualHosting: true, Bucket: "mybucket"})
	if err == nil {
		t.Fatal("expected dial failure to surface")
	}
	if endpoints[0].Blacklisted(time.Now()) {
		t.Fatal("virtual-hosted endpoint should not be blacklisted on failure")
	}
}

func TestDispatcherRoundRobinMonotonic(t *testing.T) {
	dial := func(ctx context.Context, addr string) (net.Conn, error) {
		c1, c2 := net.Pipe()
		c2.Close()
		return c1, nil
	}
	pool := NewPool(Config{NBuckets: 4}, dial, nil)
	endpoints := []*Endpoint{
		{Host: "a", Port: "1"},
		{Host: "b", Port: "1"},
		{Host: "c", Port: "1"},
	}
	d := NewDispatcher(pool, endpoints, time.Minute, nil)

	var seen []string
	for i := 0; i < 6; i++ {
		h, err := d.TryConnect(context.Background(), Options{})
		if err != nil {
			t.Fatalf("TryConnect #%d: %v", i, err)
		}
		seen = append(seen, h.Endpoint.Host)
		pool.Release(h.Conn)
	}
	want := []string{"a", "b", "c", "a", "b", "c"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("round-robin order = %v; want %v", seen, want)
		}
	}
}
