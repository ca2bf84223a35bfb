// Package s3 implements the dpl.Backend vtable for Amazon S3 and
// S3-compatible object stores: V2/V4 signing, x-amz-* object headers, and
// x-amz-meta-* user metadata, per spec.md §4.1/§4.4/§4.5/§4.7.
package s3

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
	"github.com/scality/droplet-go/dpl/httpreply"
	"github.com/scality/droplet-go/dpl/meta"
	"github.com/scality/droplet-go/dpl/sigv2"
	"github.com/scality/droplet-go/dpl/sigv4"
)

// metaPrefix is S3's user-metadata header prefix, per spec.md §4.7.
const metaPrefix = meta.Prefix("x-amz-meta-")

// Backend implements dpl.Backend for S3.
type Backend struct{}

// New returns an S3 backend instance.
func New() *Backend { return &Backend{} }

var _ dpl.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "s3" }

// ApplyObjectHeaders emits x-amz-acl, x-amz-storage-class, and the
// x-amz-meta-* user metadata, per spec.md §4.1.
func (b *Backend) ApplyObjectHeaders(h *dict.Dict, r *dpl.Request) error {
	if r.ACL != "" {
		h.Set("x-amz-acl", string(r.ACL))
	}
	if r.StorageClass != "" {
		h.Set("x-amz-storage-class", r.StorageClass)
	}
	metaPrefix.ToHeaders(r.Metadata, h)
	return nil
}

// Sign signs h in place using the context's configured signing version.
func (b *Backend) Sign(c *dpl.Context, r *dpl.Request, host string, h *dict.Dict) error {
	switch c.Signing {
	case dpl.SigningV2:
		return b.signV2(c, r, h)
	case dpl.SigningV4:
		return b.signV4(c, r, host, h)
	default:
		return fmt.Errorf("s3: unknown signing version %v", c.Signing)
	}
}

func (b *Backend) signV2(c *dpl.Context, r *dpl.Request, h *dict.Dict) error {
	dateOrExpires, _ := h.Get("x-amz-date")
	if dateOrExpires == "" {
		dateOrExpires, _ = h.Get("Date")
	}
	contentMD5, _ := h.Get("Content-MD5")
	contentType, _ := h.Get("Content-Type")

	sreq := sigv2.Request{
		Method:        r.Method.String(),
		ContentMD5:    contentMD5,
		ContentType:   contentType,
		DateOrExpires: dateOrExpires,
		Headers:       h,
		Bucket:        r.Bucket,
		Resource:      r.Resource,
		Subresource:   r.Subresource,
	}
	auth := sigv2.AuthorizationHeader(c.Credentials.AccessKey, c.Credentials.SecretKey, sreq)
	h.Set("Authorization", auth)
	return nil
}

func (b *Backend) signV4(c *dpl.Context, r *dpl.Request, host string, h *dict.Dict) error {
	now := time.Now().UTC()
	payloadHash, _ := h.Get("x-amz-content-sha256")
	if payloadHash == "" {
		if r.DataSet {
			sum := sha256.Sum256(r.Data)
			payloadHash = hex.EncodeToString(sum[:])
		} else {
			payloadHash = sigv4.EmptySHA256Hex
		}
		h.Set("x-amz-content-sha256", payloadHash)
	}
	h.Set("x-amz-date", now.Format("20060102T150405Z"))

	sreq := sigv4.Request{
		Method:           r.Method.String(),
		Resource:         r.Resource,
		Headers:          h,
		Host:             host,
		Region:           c.Region,
		Time:             now,
		PayloadSHA256Hex: payloadHash,
	}
	auth := sigv4.HeaderForm(c.Credentials.AccessKey, c.Credentials.SecretKey, sreq)
	h.Set("Authorization", auth)
	return nil
}

// GenURL returns a presigned URL using the context's configured signing
// version, per spec.md §6 "Presigned URL query parameters".
func (b *Backend) GenURL(c *dpl.Context, r *dpl.Request, host string, expiresSeconds int) (string, error) {
	resourcePath := r.Resource
	u := url.URL{Scheme: "https", Host: host, Path: "/" + r.Bucket + resourcePath}
	if r.VirtualHosting {
		u.Path = resourcePath
	}

	switch c.Signing {
	case dpl.SigningV2:
		expires := fmt.Sprintf("%d", time.Now().Add(time.Duration(expiresSeconds)*time.Second).Unix())
		sreq := sigv2.Request{
			Method:        "GET",
			DateOrExpires: expires,
			Headers:       dict.New(),
			Bucket:        r.Bucket,
			Resource:      r.Resource,
			Subresource:   r.Subresource,
		}
		q := sigv2.PresignedQuery(c.Credentials.AccessKey, c.Credentials.SecretKey, sreq)
		u.RawQuery = q.Encode()
		return u.String(), nil
	case dpl.SigningV4:
		sreq := sigv4.Request{
			Method:           "GET",
			Resource:         r.Resource,
			Host:             host,
			Region:           c.Region,
			Time:             time.Now().UTC(),
			PayloadSHA256Hex: sigv4.UnsignedPayload,
		}
		q := sigv4.QueryForm(c.Credentials.AccessKey, c.Credentials.SecretKey, sreq, expiresSeconds)
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("s3: unknown signing version %v", c.Signing)
	}
}

func (b *Backend) MapHeaders(h *dict.Dict) *dict.Dict {
	return metaPrefix.FromHeaders(h)
}

func (b *Backend) MapReply(reply *httpreply.Reply) meta.System {
	return meta.ExtractSystem(reply.Headers)
}
