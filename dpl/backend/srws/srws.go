// Package srws implements the dpl.Backend vtable for Scality's
// SRWS/Sproxyd variant: all user metadata packed into the single
// x-scal-usermd header via the n-tinydb framing, per spec.md §4.7 and
// original_source/libdroplet/srws/srws.c. Sproxyd-family backends are
// typically reached over an internal, unauthenticated transport, so Sign
// is a no-op here rather than a faked scheme.
package srws

import (
	"fmt"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
	"github.com/scality/droplet-go/dpl/httpreply"
	"github.com/scality/droplet-go/dpl/meta"
)

// Backend implements dpl.Backend for SRWS.
type Backend struct{}

func New() *Backend { return &Backend{} }

var _ dpl.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "srws" }

// ApplyObjectHeaders packs r.Metadata into the single x-scal-usermd
// header using the n-tinydb framing, per spec.md §4.7.
func (b *Backend) ApplyObjectHeaders(h *dict.Dict, r *dpl.Request) error {
	if r.Metadata.Len() == 0 {
		return nil
	}
	h.Set(meta.UsermdHeader, meta.EncodeUsermd(r.Metadata))
	return nil
}

// Sign is a no-op: SRWS/Sproxyd has no signature scheme in this module's
// scope, matching the internal-transport assumption of the original
// backend.
func (b *Backend) Sign(c *dpl.Context, r *dpl.Request, host string, h *dict.Dict) error {
	return nil
}

func (b *Backend) GenURL(c *dpl.Context, r *dpl.Request, host string, expiresSeconds int) (string, error) {
	return "", fmt.Errorf("srws: presigned URLs are not supported")
}

// MapHeaders base64+n-tinydb decodes x-scal-usermd back into a plain
// metadata dict, the forward direction of spec.md §4.7.
func (b *Backend) MapHeaders(h *dict.Dict) *dict.Dict {
	encoded, _ := h.Get(meta.UsermdHeader)
	return meta.DecodeUsermd(encoded)
}

func (b *Backend) MapReply(reply *httpreply.Reply) meta.System {
	return meta.ExtractSystem(reply.Headers)
}
