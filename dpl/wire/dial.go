// Package wire implements the socket-facing half of the pipeline: dialing
// with a bounded connect timeout, TLS bring-up, and vectored writes over
// either a plaintext or a TLS connection.
package wire

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/golang/glog"
)

// DialArgs controls how a new connection is established.
type DialArgs struct {
	Addr           string // host:port
	ConnectTimeout time.Duration
	UseTLS         bool
	SkipVerify     bool
	ServerName     string // SNI / certificate verification name; defaults to host part of Addr
}

// Dial opens a TCP connection to Addr, optionally negotiating TLS, honoring
// ConnectTimeout for the whole operation (connect + handshake). This is the
// idiomatic Go translation of the reference implementation's non-blocking
// connect(2)+poll(POLLOUT, timeout) dance: net.Dialer already performs a
// non-blocking connect internally and respects ctx's deadline, so there is
// no separate EINPROGRESS/poll step to hand-roll here.
func Dial(ctx context.Context, args DialArgs) (net.Conn, error) {
	timeout := args.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(dctx, "tcp", args.Addr)
	if err != nil {
		if dctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, err
	}

	if !args.UseTLS {
		return conn, nil
	}

	serverName := args.ServerName
	if serverName == "" {
		if h, _, splitErr := net.SplitHostPort(args.Addr); splitErr == nil {
			serverName = h
		} else {
			serverName = args.Addr
		}
	}
	tlsConn := tls.Client(conn, &tls.Config{
		InsecureSkipVerify: args.SkipVerify,
		ServerName:         serverName,
	})
	if err := tlsConn.HandshakeContext(dctx); err != nil {
		conn.Close()
		if glog.V(3) {
			glog.Warningf("wire: TLS handshake with %s failed: %v", args.Addr, err)
		}
		return nil, err
	}
	return tlsConn, nil
}

// ErrTimeout is returned by Dial when ConnectTimeout elapses before the
// connection (or TLS handshake) completes.
var ErrTimeout = dialTimeoutErr{}

type dialTimeoutErr struct{}

func (dialTimeoutErr) Error() string   { return "wire: connect timed out" }
func (dialTimeoutErr) Timeout() bool   { return true }
func (dialTimeoutErr) Temporary() bool { return true }
