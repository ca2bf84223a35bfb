// Package cdmi implements the dpl.Backend vtable for CDMI: a JSON object
// envelope carrying {"metadata":{...},"value":"..."} plus
// x-object-meta-/x-container-meta- header mirroring, per
// original_source/libdroplet/src/backend/cdmi/replyparser.c and
// SPEC_FULL.md §5's "CDMI JSON object envelope" supplement. CDMI
// object-ID encoding itself stays out of scope per spec.md §1.
package cdmi

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
	"github.com/scality/droplet-go/dpl/httpreply"
	"github.com/scality/droplet-go/dpl/meta"
)

const (
	objectMetaPrefix    = meta.Prefix("x-object-meta-")
	containerMetaPrefix = meta.Prefix("x-container-meta-")
	cdmiObjectType      = "application/cdmi-object"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the CDMI object body: metadata plus the (base64-encoded,
// since CDMI "value" is a text-safe transport) payload.
type envelope struct {
	Metadata map[string]string `json:"metadata"`
	Value    string            `json:"value,omitempty"`
}

// Backend implements dpl.Backend for CDMI.
type Backend struct{}

func New() *Backend { return &Backend{} }

var _ dpl.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "cdmi" }

// ApplyObjectHeaders wraps r.Data (if set) and r.Metadata into the CDMI
// JSON envelope, replacing the plain body with the serialized envelope
// and setting Content-Type accordingly.
func (b *Backend) ApplyObjectHeaders(h *dict.Dict, r *dpl.Request) error {
	if !r.DataSet && r.Metadata.Len() == 0 {
		return nil
	}
	env := envelope{Metadata: make(map[string]string, r.Metadata.Len())}
	r.Metadata.Range(func(k, v string) { env.Metadata[k] = v })
	if r.DataSet {
		env.Value = base64.StdEncoding.EncodeToString(r.Data)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cdmi: marshal envelope: %w", err)
	}
	r.Data = body
	r.DataSet = true
	h.Set("Content-Type", cdmiObjectType)
	h.Set("Content-Length", fmt.Sprintf("%d", len(body)))

	// Build already computed Content-MD5 (if requested) over the raw,
	// pre-envelope payload; that checksum no longer matches body, the
	// bytes that actually go out over the wire, so recompute it here.
	if _, ok := h.Get("Content-MD5"); ok {
		sum := md5.Sum(body)
		h.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	}

	// Mirror user metadata onto plain headers too, so a server that reads
	// only headers (rather than the JSON body) still sees it, matching
	// the forward-mapping side of spec.md §4.7.
	prefix := objectMetaPrefix
	if r.Resource == "/" || r.Resource == "" {
		prefix = containerMetaPrefix
	}
	prefix.ToHeaders(r.Metadata, h)
	return nil
}

// Sign uses HTTP Basic authentication over the context's credentials,
// the common convention for CDMI servers that don't implement a
// signature scheme of their own.
func (b *Backend) Sign(c *dpl.Context, r *dpl.Request, host string, h *dict.Dict) error {
	cred := c.Credentials.AccessKey + ":" + c.Credentials.SecretKey
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(cred)))
	return nil
}

// GenURL is not supported: CDMI has no presigned-URL convention in this
// module's scope.
func (b *Backend) GenURL(c *dpl.Context, r *dpl.Request, host string, expiresSeconds int) (string, error) {
	return "", fmt.Errorf("cdmi: presigned URLs are not supported")
}

// MapHeaders reads user metadata from the object/container meta prefixes
// only; it does not see the reply body, so the JSON envelope's metadata
// sub-object is available only through DecodeEnvelope.
func (b *Backend) MapHeaders(h *dict.Dict) *dict.Dict {
	md := objectMetaPrefix.FromHeaders(h)
	containerMetaPrefix.FromHeaders(h).Range(md.Set)
	return md
}

// DecodeEnvelope parses a CDMI JSON object body, returning its metadata
// dict and decoded value.
func DecodeEnvelope(body []byte) (*dict.Dict, []byte, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("cdmi: unmarshal envelope: %w", err)
	}
	md := dict.New()
	for k, v := range env.Metadata {
		md.Set(k, v)
	}
	var value []byte
	if env.Value != "" {
		v, err := base64.StdEncoding.DecodeString(env.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("cdmi: decode value: %w", err)
		}
		value = v
	}
	return md, value, nil
}

func (b *Backend) MapReply(reply *httpreply.Reply) meta.System {
	return meta.ExtractSystem(reply.Headers)
}
