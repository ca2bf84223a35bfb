//go:build unix

package connpool

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// probeUsable implements the idle-connection liveness check from spec.md
// §4.3: a non-blocking, zero-timeout poll plus a one-byte MSG_PEEK read.
// Any readable-but-zero-length result means the peer has shut the
// connection down and it must be destroyed rather than reused.
func probeUsable(c *Conn) bool {
	tc, ok := c.Conn.(*net.TCPConn)
	if !ok {
		// Non-TCP (e.g. TLS-wrapped) connections can't be probed this way
		// without consuming application bytes; assume usable and let the
		// next real read surface a closed connection.
		return true
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return true
	}

	var n int
	var probeErr error
	ctlErr := raw.Read(func(fd uintptr) bool {
		buf := make([]byte, 1)
		n, _, probeErr = unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
		return true
	})
	if ctlErr != nil {
		return true
	}
	if probeErr == unix.EAGAIN || probeErr == unix.EWOULDBLOCK {
		// Nothing pending: socket is idle and presumably still open.
		return true
	}
	if probeErr != nil {
		return false
	}
	// n == 0 with no error means the peer performed an orderly shutdown.
	return n != 0
}

// setRecvTimeout sets a read deadline d from now with SetReadDeadline, the
// Go stand-in for the reference implementation's SO_RCVTIMEO; d <= 0
// clears the deadline. It does not set the socket option itself.
func setRecvTimeout(c net.Conn, d time.Duration) error {
	return c.SetReadDeadline(timeDeadline(d))
}

func timeDeadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
