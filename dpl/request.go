package dpl

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/scality/droplet-go/dpl/dict"
)

// Method is the HTTP method a Request targets, per spec.md §3.
type Method int

const (
	MethodGet Method = iota
	MethodPut
	MethodPost
	MethodHead
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPut:
		return "PUT"
	case MethodPost:
		return "POST"
	case MethodHead:
		return "HEAD"
	case MethodDelete:
		return "DELETE"
	default:
		return "GET"
	}
}

// ConditionKind is one of the four conditional-predicate forms §3 lists.
type ConditionKind int

const (
	CondIfMatch ConditionKind = iota
	CondIfNoneMatch
	CondIfModifiedSince
	CondIfUnmodifiedSince
)

// Condition is one conditional predicate, tagged OnCopySource per the
// supplemented feature in SPEC_FULL.md §5 (the original keeps a single
// list with a per-entry flag rather than two parallel lists).
type Condition struct {
	Kind         ConditionKind
	Value        string
	OnCopySource bool
}

func (c Condition) headerName() string {
	var base string
	switch c.Kind {
	case CondIfMatch:
		base = "If-Match"
	case CondIfNoneMatch:
		base = "If-None-Match"
	case CondIfModifiedSince:
		base = "If-Modified-Since"
	case CondIfUnmodifiedSince:
		base = "If-Unmodified-Since"
	}
	if c.OnCopySource {
		return "x-amz-copy-source-" + strings.ToLower(base)
	}
	return base
}

// CopyDirective is one of the copy-directive enumerators from spec.md §3.
// Only Copy and MetadataReplace are honored by the request builder at this
// layer; any other value is rejected at Build time with ENOTSUPP, per
// spec.md §4.1.
type CopyDirective int

const (
	DirectiveNone CopyDirective = iota
	DirectiveCopy
	DirectiveLink
	DirectiveSymlink
	DirectiveMove
	DirectiveMkdent
	DirectiveRmdent
	DirectiveMvdent
	DirectiveMetadataReplace
)

// ObjectType enumerates spec.md §3's object type tag.
type ObjectType int

const (
	TypeUndef ObjectType = iota
	TypeReg
	TypeDir
	TypeCap
	TypeDom
	TypeChrdev
	TypeBlkdev
	TypeFifo
	TypeSocket
	TypeSymlink
	TypeAny
)

// ReqMask selects which optional assembly steps Build applies, per
// spec.md §4.1's "req_mask" parameter.
type ReqMask uint32

const (
	MaskCopy ReqMask = 1 << iota
)

// CannedACL is a small enum of the canned ACL values S3-family backends
// accept on x-amz-acl; other backends may ignore it.
type CannedACL string

// CopySource names the source object for a COPY-directive request.
type CopySource struct {
	Bucket      string
	Resource    string
	Subresource string
}

// Request is the mutable per-call builder described in spec.md §3/§4.1.
// Valid only between New and the point it's handed to a pipeline
// operation; callers should not reuse one across calls.
type Request struct {
	ctx *Context

	Method      Method
	Bucket      string
	Resource    string
	Subresource string

	Range       dict.RangeVec
	Conditions  []Condition

	CacheControl    string
	ContentDisposition string
	ContentEncoding string
	ContentType     string

	Data    []byte
	DataSet bool

	Metadata *dict.Dict

	ACL          CannedACL
	StorageClass string
	Mtime        time.Time
	HasMtime     bool

	CopySrc       CopySource
	HasCopySrc    bool
	CopyDirective CopyDirective

	VirtualHosting bool
	KeepAlive      bool
	ComputeMD5     bool
	Expect100      bool
	QueryStringForm bool

	Expires    time.Time
	HasExpires bool

	ObjectType ObjectType

	// TraceID is a short id stamped at New and logged at V(4) alongside
	// method/resource, per SPEC_FULL.md §2/§3 ambient stack.
	TraceID string
}

// New allocates a Request with the default behavior flags {keep-alive,
// virtual-hosting}, per spec.md §4.1.
func New(ctx *Context) *Request {
	return &Request{
		ctx:            ctx,
		Metadata:       dict.New(),
		VirtualHosting: true,
		KeepAlive:      true,
		TraceID:        genTraceID() + nextTie(),
	}
}

// AddRange appends a byte range; startSet/endSet false means that bound is
// open, per spec.md §4.1. Returns EINVAL once dict.MaxRanges is reached or
// neither bound is given.
func (r *Request) AddRange(start, end int64, startSet, endSet bool) error {
	br := dict.ByteRange{Start: dict.NoStart(), End: dict.NoEnd()}
	if startSet {
		br.Start = start
	}
	if endSet {
		br.End = end
	}
	if err := r.Range.Add(br); err != nil {
		return newErr(CodeInval, err, "add_range")
	}
	return nil
}

// AddMetadatum merges one key/value into the builder's metadata dict.
func (r *Request) AddMetadatum(key, value string) {
	r.Metadata.Set(key, value)
}

// AddMetadata merges every entry of md into the builder's metadata dict.
func (r *Request) AddMetadata(md *dict.Dict) {
	r.Metadata.Merge(md)
}

// AddCondition appends one conditional predicate.
func (r *Request) AddCondition(c Condition) {
	r.Conditions = append(r.Conditions, c)
}

// Build assembles the backend-agnostic portion of the header dict per
// spec.md §4.1: range, conditions, content-* headers, Expect-100, the
// x-amz-copy-source and x-amz-metadata-directive headers under MaskCopy,
// keep-alive, and Date. Backend-specific headers (ACL, storage class,
// metadata prefix, signing) are layered on top by the active
// Backend's ApplyObjectHeaders and Sign, called from the pipeline
// operations in reqdo.go — this keeps Build reusable across backends per
// SPEC_FULL.md §2.
func (r *Request) Build(mask ReqMask) (*dict.Dict, error) {
	h := dict.New()

	switch r.Method {
	case MethodGet, MethodHead:
		if err := r.applyRange(h); err != nil {
			return nil, err
		}
		r.applyConditions(h, mask)
	case MethodPut, MethodPost:
		if err := r.applyBodyHeaders(h); err != nil {
			return nil, err
		}
		r.applyConditions(h, mask)
		if mask&MaskCopy != 0 {
			if !r.HasCopySrc {
				return nil, newErr(CodeInval, nil, "build: copy mask set without copy source")
			}
			if r.CopyDirective != DirectiveCopy && r.CopyDirective != DirectiveMetadataReplace {
				return nil, newErr(CodeNotSupp, nil, "build: copy directive %v not supported at this layer", r.CopyDirective)
			}
			h.Set("x-amz-copy-source", copySourceHeader(r.CopySrc))
			if r.CopyDirective == DirectiveMetadataReplace {
				h.Set("x-amz-metadata-directive", "REPLACE")
			}
		}
	case MethodDelete:
		// no method-specific headers beyond common ones
	}

	if r.KeepAlive {
		h.Set("Connection", "Keep-Alive")
	}
	h.Set("Date", time.Now().UTC().Format(time.RFC1123))

	return h, nil
}

// applyRange renders every range staged via AddRange into a single Range
// header, per spec.md §4.1's up-to-MaxRanges add_range. A single range
// renders as "bytes=start-end"; multiple stage into the standard
// comma-joined multi-range form "bytes=start-end,start-end,...".
func (r *Request) applyRange(h *dict.Dict) error {
	if r.Range.Empty() {
		return nil
	}
	specs := make([]string, 0, r.Range.Len())
	for _, br := range r.Range.All() {
		v, err := br.Header()
		if err != nil {
			return newErr(CodeInval, err, "build: invalid range")
		}
		specs = append(specs, strings.TrimPrefix(v, "bytes="))
	}
	h.Set("Range", "bytes="+strings.Join(specs, ","))
	return nil
}

func (r *Request) applyConditions(h *dict.Dict, mask ReqMask) {
	for _, c := range r.Conditions {
		if c.OnCopySource && mask&MaskCopy == 0 {
			continue
		}
		h.Set(c.headerName(), c.Value)
	}
}

func (r *Request) applyBodyHeaders(h *dict.Dict) error {
	if r.DataSet {
		h.Set("Content-Length", fmt.Sprintf("%d", len(r.Data)))
		if r.ComputeMD5 {
			sum := md5.Sum(r.Data)
			h.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
		}
	}
	if r.ContentType != "" {
		h.Set("Content-Type", r.ContentType)
	}
	if r.ContentEncoding != "" {
		h.Set("Content-Encoding", r.ContentEncoding)
	}
	if r.ContentDisposition != "" {
		h.Set("Content-Disposition", r.ContentDisposition)
	}
	if r.CacheControl != "" {
		h.Set("Cache-Control", r.CacheControl)
	}
	if r.Expect100 {
		h.Set("Expect", "100-continue")
	}
	return nil
}

// copySourceHeader renders "/<bucket>/<url-encoded resource>[?subresource]"
// per spec.md §4.1.
func copySourceHeader(src CopySource) string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(src.Bucket)
	b.WriteByte('/')
	b.WriteString(encodeResourcePath(src.Resource))
	if src.Subresource != "" {
		b.WriteByte('?')
		b.WriteString(src.Subresource)
	}
	return b.String()
}

// encodeResourcePath percent-encodes a resource path using the
// slash-preserving variant from spec.md §4.1: every path segment is
// strictly encoded, but the separating '/' characters are left literal.
// The leading '/' is dropped; callers write it themselves.
func encodeResourcePath(resource string) string {
	segments := strings.Split(strings.TrimPrefix(resource, "/"), "/")
	for i, seg := range segments {
		// QueryEscape encodes every byte outside the unreserved set except
		// that it writes a space as '+'; a literal '+' is already %2B.
		segments[i] = strings.ReplaceAll(url.QueryEscape(seg), "+", "%20")
	}
	return strings.Join(segments, "/")
}
