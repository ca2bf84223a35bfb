package dpl

import (
	"github.com/scality/droplet-go/dpl/dict"
	"github.com/scality/droplet-go/dpl/httpreply"
	"github.com/scality/droplet-go/dpl/meta"
)

// Backend is the per-protocol capability set spec.md §9 "Virtual dispatch"
// calls out: {sign, build, map_headers, map_reply}, plus the handful of
// additional hooks (ApplyObjectHeaders, GenURL) needed because the
// metadata-prefix and ACL/storage-class conventions genuinely differ per
// backend, per spec.md §2 ("per-backend differences are confined to the
// Signing, Request builder (header set), and Metadata mapping modules").
// The ops in reqdo.go call these hooks through Context.Backend on every
// operation (Sign once per connection attempt).
type Backend interface {
	// Name identifies the backend for logging.
	Name() string

	// ApplyObjectHeaders layers backend-specific object headers (ACL,
	// storage class, user metadata under this backend's prefix
	// convention) onto h, which already carries the backend-agnostic
	// headers from Request.Build.
	ApplyObjectHeaders(h *dict.Dict, r *Request) error

	// Sign adds whatever headers (or none, if query-string form is used
	// and the signature goes in the URL instead) are needed to
	// authenticate the request, given the fully assembled header set h.
	Sign(c *Context, r *Request, host string, h *dict.Dict) error

	// GenURL returns a presigned URL valid for expiresSeconds.
	GenURL(c *Context, r *Request, host string, expiresSeconds int) (string, error)

	// MapHeaders extracts the plain (prefix-free) user metadata dict from
	// wire-level reply headers, the forward direction of spec.md §4.7.
	MapHeaders(h *dict.Dict) *dict.Dict

	// MapReply extracts system metadata from a parsed reply, per
	// spec.md §4.7.
	MapReply(reply *httpreply.Reply) meta.System
}
