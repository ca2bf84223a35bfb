//go:build !unix

package connpool

import (
	"net"
	"time"
)

// probeUsable is the non-unix fallback: no portable MSG_PEEK, so an idle
// connection is assumed usable and a dead peer surfaces on the next real
// read instead of at check-out time.
func probeUsable(c *Conn) bool { return true }

func setRecvTimeout(c net.Conn, d time.Duration) error {
	return c.SetReadDeadline(timeDeadline(d))
}

func timeDeadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
