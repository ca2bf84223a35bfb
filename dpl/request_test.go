package dpl

import (
	"testing"

	"github.com/scality/droplet-go/dpl/dict"
)

func TestNewDefaultsKeepAliveAndVirtualHosting(t *testing.T) {
	r := New(nil)
	if !r.KeepAlive || !r.VirtualHosting {
		t.Fatalf("New() defaults = keepalive:%v virtualhosting:%v; want true,true", r.KeepAlive, r.VirtualHosting)
	}
	if r.TraceID == "" {
		t.Fatal("New() should stamp a non-empty TraceID")
	}
}

func TestNewTraceIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := New(nil).TraceID
		if seen[id] {
			t.Fatalf("duplicate TraceID %q after %d requests", id, i)
		}
		seen[id] = true
	}
}

func TestBuildGetAppliesRangeAndConditions(t *testing.T) {
	r := New(nil)
	r.Method = MethodGet
	if err := r.AddRange(0, 99, true, true); err != nil {
		t.Fatalf("AddRange: %v", err)
	}
	r.AddCondition(Condition{Kind: CondIfNoneMatch, Value: `"etag"`})

	h, err := r.Build(0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, _ := h.Get("Range"); v != "bytes=0-99" {
		t.Fatalf("Range = %q", v)
	}
	if v, _ := h.Get("If-None-Match"); v != `"etag"` {
		t.Fatalf("If-None-Match = %q", v)
	}
}

func TestBuildGetRendersMultipleRanges(t *testing.T) {
	r := New(nil)
	r.Method = MethodGet
	if err := r.AddRange(0, 99, true, true); err != nil {
		t.Fatalf("AddRange: %v", err)
	}
	if err := r.AddRange(200, 299, true, true); err != nil {
		t.Fatalf("AddRange: %v", err)
	}

	h, err := r.Build(0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, _ := h.Get("Range"); v != "bytes=0-99,200-299" {
		t.Fatalf("Range = %q", v)
	}
}

func TestBuildPutComputesContentHeaders(t *testing.T) {
	r := New(nil)
	r.Method = MethodPut
	r.Data = []byte("hello world")
	r.DataSet = true
	r.ComputeMD5 = true
	r.ContentType = "text/plain"

	h, err := r.Build(0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, _ := h.Get("Content-Length"); v != "11" {
		t.Fatalf("Content-Length = %q", v)
	}
	if _, ok := h.Get("Content-MD5"); !ok {
		t.Fatal("Content-MD5 missing")
	}
	if v, _ := h.Get("Content-Type"); v != "text/plain" {
		t.Fatalf("Content-Type = %q", v)
	}
}

func TestBuildCopyMaskRequiresCopySource(t *testing.T) {
	r := New(nil)
	r.Method = MethodPut
	if _, err := r.Build(MaskCopy); err == nil || !IsCode(err, CodeInval) {
		t.Fatalf("Build(MaskCopy) without source = %v; want EINVAL", err)
	}
}

func TestBuildCopyMaskRejectsUnsupportedDirective(t *testing.T) {
	r := New(nil)
	r.Method = MethodPut
	r.HasCopySrc = true
	r.CopySrc = CopySource{Bucket: "b", Resource: "/k"}
	r.CopyDirective = DirectiveMove

	if _, err := r.Build(MaskCopy); err == nil || !IsCode(err, CodeNotSupp) {
		t.Fatalf("Build(MaskCopy) with DirectiveMove = %v; want ENOTSUPP", err)
	}
}

func TestBuildCopyMaskSetsCopySourceHeader(t *testing.T) {
	r := New(nil)
	r.Method = MethodPut
	r.HasCopySrc = true
	r.CopySrc = CopySource{Bucket: "src-bucket", Resource: "/a b/c"}
	r.CopyDirective = DirectiveMetadataReplace

	h, err := r.Build(MaskCopy)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, _ := h.Get("x-amz-copy-source"); v != "/src-bucket/a%20b/c" {
		t.Fatalf("x-amz-copy-source = %q", v)
	}
	if v, _ := h.Get("x-amz-metadata-directive"); v != "REPLACE" {
		t.Fatalf("x-amz-metadata-directive = %q", v)
	}
}

func TestAddMetadataMerges(t *testing.T) {
	r := New(nil)
	md := dict.New()
	md.Set("a", "1")
	md.Set("b", "2")
	r.AddMetadata(md)
	r.AddMetadatum("c", "3")

	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if v, ok := r.Metadata.Get(kv.k); !ok || v != kv.v {
			t.Fatalf("Metadata[%q] = %q, %v; want %q", kv.k, v, ok, kv.v)
		}
	}
}
