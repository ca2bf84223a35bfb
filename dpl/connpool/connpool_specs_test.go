package connpool_test

import (
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/scality/droplet-go/dpl/connpool"
)

var _ = Describe("Pool", func() {
	var dialCount int
	dial := func(ctx context.Context, addr string) (net.Conn, error) {
		dialCount++
		c1, c2 := net.Pipe()
		c2.Close()
		return c1, nil
	}

	BeforeEach(func() {
		dialCount = 0
	})

	It("reuses an idle connection instead of redialing", func() {
		p := connpool.NewPool(connpool.Config{NBuckets: 4}, dial, nil)

		c1, err := p.CheckOut(context.Background(), "host:1")
		Expect(err).NotTo(HaveOccurred())
		p.Release(c1)

		c2, err := p.CheckOut(context.Background(), "host:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(c2.Hits()).To(Equal(1))
		Expect(dialCount).To(Equal(1))
	})

	It("rejects a check-out once MaxConns live sockets are in use", func() {
		p := connpool.NewPool(connpool.Config{NBuckets: 4, MaxConns: 1}, dial, nil)

		c1, err := p.CheckOut(context.Background(), "host:1")
		Expect(err).NotTo(HaveOccurred())

		_, err = p.CheckOut(context.Background(), "host:2")
		Expect(err).To(MatchError(connpool.ErrPoolFull))
		Expect(dialCount).To(Equal(1))

		p.Release(c1)
	})

	It("skips a blacklisted endpoint until its window elapses", func() {
		failNext := true
		flakyDial := func(ctx context.Context, addr string) (net.Conn, error) {
			if failNext {
				failNext = false
				return nil, context.DeadlineExceeded
			}
			c1, c2 := net.Pipe()
			c2.Close()
			return c1, nil
		}
		p := connpool.NewPool(connpool.Config{NBuckets: 4}, flakyDial, nil)
		endpoints := []*connpool.Endpoint{{Host: "only", Port: "1"}}
		d := connpool.NewDispatcher(p, endpoints, 50*time.Millisecond, nil)

		_, err := d.TryConnect(context.Background(), connpool.Options{})
		Expect(err).To(HaveOccurred())
		Expect(endpoints[0].Blacklisted(time.Now())).To(BeTrue())

		_, err = d.TryConnect(context.Background(), connpool.Options{})
		Expect(err).To(Equal(connpool.ErrAllEndpointsExhausted))

		time.Sleep(60 * time.Millisecond)
		h, err := d.TryConnect(context.Background(), connpool.Options{})
		Expect(err).NotTo(HaveOccurred())
		p.Release(h.Conn)
	})
})
