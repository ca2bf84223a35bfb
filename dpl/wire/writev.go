package wire

import (
	"crypto/tls"
	"net"
	"time"
)

// WritevAll writes every byte of bufs to conn, honoring a per-call
// deadline. Plain TCP connections use net.Buffers, whose WriteTo
// implementation issues a real writev(2) when the underlying conn
// supports it (*net.TCPConn does); this is the idiomatic Go stand-in
// for the reference implementation's writev_all_plaintext. TLS
// connections have no vectored-write syscall to fall back on, so the
// buffers are flattened and written in one Write call, matching
// writev_all_ssl — and, like the reference, the per-write timeout is
// best-effort only on a TLS conn: SetWriteDeadline covers the whole
// flattened write rather than each original vector.
func WritevAll(conn net.Conn, bufs [][]byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		defer conn.SetWriteDeadline(time.Time{})
	}

	if _, isTLS := conn.(*tls.Conn); isTLS {
		return writevFlattened(conn, bufs)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		nb := net.Buffers(cloneBufs(bufs))
		_, err := nb.WriteTo(tcp)
		return err
	}
	return writevFlattened(conn, bufs)
}

func writevFlattened(conn net.Conn, bufs [][]byte) error {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	flat := make([]byte, 0, total)
	for _, b := range bufs {
		flat = append(flat, b...)
	}
	for len(flat) > 0 {
		n, err := conn.Write(flat)
		if err != nil {
			return err
		}
		flat = flat[n:]
	}
	return nil
}

// cloneBufs gives net.Buffers its own slice headers to consume, since
// WriteTo mutates the slice in place as it drains.
func cloneBufs(bufs [][]byte) [][]byte {
	out := make([][]byte, len(bufs))
	copy(out, bufs)
	return out
}
