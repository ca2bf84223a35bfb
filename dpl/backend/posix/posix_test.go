package posix

import (
	"sort"
	"testing"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
)

func TestPutGetDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)

	if err := b.MakeBucket("bucket"); err != nil {
		t.Fatalf("MakeBucket: %v", err)
	}
	if err := b.Put("bucket", "/a/b.txt", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := b.Get("bucket", "/a/b.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get() = %q", got)
	}
	if err := b.Delete("bucket", "/a/b.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Get("bucket", "/a/b.txt"); err == nil {
		t.Fatal("Get should fail after Delete")
	}
}

func TestListBucket(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	b.MakeBucket("bucket")
	b.Put("bucket", "/x.txt", []byte("1"))
	b.Put("bucket", "/sub/y.txt", []byte("2"))

	names, err := b.ListBucket("bucket")
	if err != nil {
		t.Fatalf("ListBucket: %v", err)
	}
	sort.Strings(names)
	want := []string{"sub/y.txt", "x.txt"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("ListBucket() = %v; want %v", names, want)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	if _, err := b.path("bucket", "/../../etc/passwd"); err == nil {
		t.Fatal("path should reject traversal outside root")
	}
}

func TestApplyObjectHeadersAndMapHeaders(t *testing.T) {
	b := New(t.TempDir())
	md := dict.New()
	md.Set("owner", "alice")

	h := dict.New()
	r := &dpl.Request{Metadata: md}
	if err := b.ApplyObjectHeaders(h, r); err != nil {
		t.Fatalf("ApplyObjectHeaders: %v", err)
	}
	if v, ok := h.Get("x-posix-meta-owner"); !ok || v != "alice" {
		t.Fatalf("x-posix-meta-owner = %q, %v", v, ok)
	}

	got := b.MapHeaders(h)
	if v, ok := got.Get("owner"); !ok || v != "alice" {
		t.Fatalf("MapHeaders owner = %q, %v", v, ok)
	}
}
