package srws

import (
	"testing"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
)

func TestApplyAndMapHeadersRoundTrip(t *testing.T) {
	b := New()
	md := dict.New()
	md.Set("owner", "alice")
	md.Set("project", "droplet-go")

	r := &dpl.Request{Metadata: md}
	h := dict.New()
	if err := b.ApplyObjectHeaders(h, r); err != nil {
		t.Fatalf("ApplyObjectHeaders: %v", err)
	}
	if _, ok := h.Get("x-scal-usermd"); !ok {
		t.Fatal("x-scal-usermd missing")
	}

	got := b.MapHeaders(h)
	if v, ok := got.Get("owner"); !ok || v != "alice" {
		t.Fatalf("owner = %q, %v", v, ok)
	}
	if v, ok := got.Get("project"); !ok || v != "droplet-go" {
		t.Fatalf("project = %q, %v", v, ok)
	}
}

func TestApplyObjectHeadersEmptyMetadataOmitsHeader(t *testing.T) {
	b := New()
	r := &dpl.Request{Metadata: dict.New()}
	h := dict.New()
	if err := b.ApplyObjectHeaders(h, r); err != nil {
		t.Fatalf("ApplyObjectHeaders: %v", err)
	}
	if h.Has("x-scal-usermd") {
		t.Fatal("x-scal-usermd should be absent for empty metadata")
	}
}

func TestSignIsNoop(t *testing.T) {
	b := New()
	h := dict.New()
	if err := b.Sign(nil, &dpl.Request{}, "host", h); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("Sign should not add headers, got %d", h.Len())
	}
}
