// Package meta maps between a backend's wire-level metadata headers and the
// plain, prefix-free metadata dictionary the request/reply layer works with,
// per spec.md §4.7. It also extracts the stable system-metadata subset
// (size, mtime, etag) common to every backend.
package meta

import (
	"strconv"
	"strings"
	"time"

	"github.com/scality/droplet-go/dpl/dict"
)

// System is the subset of metadata every backend exposes via stable
// headers, independent of the user-metadata prefix convention.
type System struct {
	Size    int64
	HasSize bool
	Mtime   time.Time
	HasMtime bool
	ETag    string
}

// httpDateLayouts covers the formats seen on Last-Modified across backends:
// RFC1123 (the common case) plus RFC850 and ANSI C, per RFC 7231 §7.1.1.1's
// three allowed formats.
var httpDateLayouts = []string{
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

// ExtractSystem reads content-length, last-modified, and etag off h,
// per spec.md §4.7. Headers absent or unparsable are simply omitted; this
// never errors since system metadata is always best-effort.
func ExtractSystem(h *dict.Dict) System {
	var s System
	if v, ok := h.Get("content-length"); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			s.Size = n
			s.HasSize = true
		}
	}
	if v, ok := h.Get("last-modified"); ok {
		for _, layout := range httpDateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				s.Mtime = t.UTC()
				s.HasMtime = true
				break
			}
		}
	}
	if v, ok := h.Get("etag"); ok {
		s.ETag = strings.Trim(v, `"`)
	}
	return s
}

// Prefix identifies a backend's user-metadata header convention for the
// simple prefix-stripping backends (S3, Swift, CDMI, POSIX). SRWS does not
// use a prefix convention and is handled by EncodeUsermd/DecodeUsermd
// (usermd.go) instead.
type Prefix string

// FromHeaders collects every header beginning with prefix (case-insensitively),
// strips it, and returns the plain metadata dict. Header names are
// lower-cased; values pass through unmodified.
func (p Prefix) FromHeaders(h *dict.Dict) *dict.Dict {
	out := dict.New()
	lp := strings.ToLower(string(p))
	h.Range(func(name, value string) {
		ln := strings.ToLower(name)
		if strings.HasPrefix(ln, lp) {
			out.Set(ln[len(lp):], value)
		}
	})
	return out
}

// ToHeaders re-adds prefix to every key in md, writing into h.
func (p Prefix) ToHeaders(md *dict.Dict, h *dict.Dict) {
	if md == nil {
		return
	}
	md.Range(func(key, value string) {
		h.Set(string(p)+key, value)
	})
}
