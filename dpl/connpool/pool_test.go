package connpool

import (
	"context"
	"net"
	"testing"
	"time"
)

func fakeDialer(t *testing.T) (Dialer, func() int) {
	var count int
	return func(ctx context.Context, addr string) (net.Conn, error) {
			count++
			c1, c2 := net.Pipe()
			c2.Close()
			return c1, nil
		}, func() int {
			return count
		}
}

func TestSlotInvariant(t *testing.T) {
	addrs := []string{"host-a:443", "host-b:443", "host-c:9020", "host-d:80", "host-e:8080"}
	for _, a := range addrs {
		idx := slot(a, 16)
		if idx < 0 || idx >= 16 {
			t.Fatalf("slot(%q) = %d out of range", a, idx)
		}
	}
}

func TestCheckOutReuseThenExpire(t *testing.T) {
	dial, calls := fakeDialer(t)
	p := NewPool(Config{NBuckets: 4, IdleTTL: 20 * time.Millisecond}, dial, nil)

	c1, err := p.CheckOut(context.Background(), "h:1")
	if err != nil {
		t.Fatalf("CheckOut #1: %v", err)
	}
	p.Release(c1)
	if got := p.LiveConns(); got != 1 {
		t.Fatalf("LiveConns = %d; want 1", got)
	}

	c2, err := p.CheckOut(context.Background(), "h:1")
	if err != nil {
		t.Fatalf("CheckOut #2: %v", err)
	}
	if c2.Hits() != 1 {
		t.Fatalf("second checkout Hits() = %d; want 1 (reused)", c2.Hits())
	}
	if calls() != 1 {
		t.Fatalf("dial called %d times; want 1 (second checkout should reuse)", calls())
	}
	p.Release(c2)

	time.Sleep(30 * time.Millisecond)
	c3, err := p.CheckOut(context.Background(), "h:1")
	if err != nil {
		t.Fatalf("CheckOut #3: %v", err)
	}
	if calls() != 2 {
		t.Fatalf("dial called %d times; want 2 (idle entry should have expired)", calls())
	}
	p.Release(c3)
	if got := p.LiveConns(); got != 1 {
		t.Fatalf("LiveConns after expiry+redial = %d; want 1", got)
	}
}

func TestCheckOutPoolFull(t *testing.T) {
	dial, _ := fakeDialer(t)
	p := NewPool(Config{NBuckets: 4, MaxConns: 1}, dial, nil)

	c1, err := p.CheckOut(context.Background(), "h:1")
	if err != nil {
		t.Fatalf("CheckOut #1: %v", err)
	}
	_, err = p.CheckOut(context.Background(), "h:2")
	if err != ErrPoolFull {
		t.Fatalf("CheckOut #2 err = %v; want ErrPoolFull", err)
	}
	p.Release(c1)
}

func TestMaxHitsEviction(t *testing.T) {
	dial, calls := fakeDialer(t)
	p := NewPool(Config{NBuckets: 4, MaxHits: 2}, dial, nil)

	// Checkout 1 dials; checkouts 2 and 3 reuse (Hits 1, then 2); checkout 4
	// finds Hits == MaxHits, destroys the connection and redials.
	for i := 0; i < 4; i++ {
		c, err := p.CheckOut(context.Background(), "h:1")
		if err != nil {
			t.Fatalf("CheckOut #%d: %v", i, err)
		}
		p.Release(c)
	}
	if calls() != 2 {
		t.Fatalf("dial called %d times; want 2 (fourth checkout should redial after MaxHits reuses)", calls())
	}
}

func TestTerminateDecrementsLiveConns(t *testing.T) {
	dial, _ := fakeDialer(t)
	p := NewPool(Config{NBuckets: 4}, dial, nil)
	c, err := p.CheckOut(context.Background(), "h:1")
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	p.Terminate(c)
	if got := p.LiveConns(); got != 0 {
		t.Fatalf("LiveConns after Terminate = %d; want 0", got)
	}
}
