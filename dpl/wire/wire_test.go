package wire

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestDialAndWritevAll(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 11)
		io.ReadFull(c, buf)
		received <- buf
	}()

	conn, err := Dial(context.Background(), DialArgs{Addr: ln.Addr().String(), ConnectTimeout: time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := WritevAll(conn, [][]byte{[]byte("hello"), []byte(" world")}, time.Second); err != nil {
		t.Fatalf("WritevAll: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "hello world" {
			t.Fatalf("server received %q; want %q", got, "hello world")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive data")
	}
}

func TestDialTimeout(t *testing.T) {
	// 10.255.255.1 is a non-routable address commonly used to force a
	// connect timeout in tests without depending on external network state.
	_, err := Dial(context.Background(), DialArgs{Addr: "10.255.255.1:81", ConnectTimeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}
