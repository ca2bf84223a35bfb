package swift

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
)

func TestApplyObjectHeadersObjectVsContainer(t *testing.T) {
	b := New()
	md := dict.New()
	md.Set("owner", "alice")

	objReq := &dpl.Request{Resource: "/photos/x.jpg", Metadata: md}
	h := dict.New()
	if err := b.ApplyObjectHeaders(h, objReq); err != nil {
		t.Fatalf("ApplyObjectHeaders: %v", err)
	}
	if v, ok := h.Get("x-object-meta-owner"); !ok || v != "alice" {
		t.Fatalf("x-object-meta-owner = %q, %v", v, ok)
	}

	bucketReq := &dpl.Request{Resource: "/", Metadata: md}
	h2 := dict.New()
	if err := b.ApplyObjectHeaders(h2, bucketReq); err != nil {
		t.Fatalf("ApplyObjectHeaders: %v", err)
	}
	if v, ok := h2.Get("x-container-meta-owner"); !ok || v != "alice" {
		t.Fatalf("x-container-meta-owner = %q, %v", v, ok)
	}
}

func TestSignRequiresToken(t *testing.T) {
	b := New()
	h := dict.New()
	if err := b.Sign(nil, &dpl.Request{}, "host", h); err == nil {
		t.Fatal("Sign should fail without a staged token")
	}
}

func TestSignAddsAuthToken(t *testing.T) {
	b := New()
	b.SetToken("tok-123", "https://storage.example.com/v1/AUTH_test")
	h := dict.New()
	if err := b.Sign(nil, &dpl.Request{}, "host", h); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if v, _ := h.Get("X-Auth-Token"); v != "tok-123" {
		t.Fatalf("X-Auth-Token = %q", v)
	}
}

func TestMapHeadersMergesObjectAndContainerMeta(t *testing.T) {
	b := New()
	h := dict.New()
	h.Set("X-Object-Meta-Color", "blue")
	h.Set("X-Container-Meta-Region", "us")

	md := b.MapHeaders(h)
	if v, _ := md.Get("color"); v != "blue" {
		t.Fatalf("color = %q", v)
	}
	if v, _ := md.Get("region"); v != "us" {
		t.Fatalf("region = %q", v)
	}
}

func TestLoginAgainstFakeServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		conn.Read(buf)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nX-Auth-Token: tok-abc\r\nX-Storage-Url: https://storage.example.com/v1/AUTH_test\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}

	b := New()
	if err := b.Login(context.Background(), host, port, "tester", "secret", false, 2*time.Second); err != nil {
		t.Fatalf("Login: %v", err)
	}
	token, storageURL := b.token()
	if token != "tok-abc" {
		t.Fatalf("token = %q", token)
	}
	if storageURL != "https://storage.example.com/v1/AUTH_test" {
		t.Fatalf("storageURL = %q", storageURL)
	}
}
