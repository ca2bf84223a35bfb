// Package sigv2 implements AWS Signature Version 2 canonicalization and
// signing, per spec.md §4.4: a string-to-sign built from the method,
// Content-MD5, Content-Type, date, canonicalized x-amz-* headers, and the
// canonicalized resource, HMAC-SHA1'd with the secret key and base64-encoded.
package sigv2

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"

	"github.com/scality/droplet-go/dpl/dict"
)

// Request is the subset of a request sigv2 needs to canonicalize.
// DateOrExpires is either the value of the x-amz-date (else Date) header
// or, for presigned URLs, the decimal
// Unix expiry timestamp — whichever spec.md §4.4 calls the
// "Date-or-Expires" line.
type Request struct {
	Method        string
	ContentMD5    string
	ContentType   string
	DateOrExpires string
	Headers       *dict.Dict // full header set; only x-amz-* (except x-amz-date) contribute
	Bucket        string     // may be empty
	Resource      string     // always begins with "/"
	Subresource   string     // may be empty
}

// CanonicalAmzHeaders collects every header whose name begins with
// "x-amz-" (case-insensitively), excluding x-amz-date, sorts them
// case-insensitively by name, and renders "lower(name):value\n" per entry.
// This also governs the Open Question in spec.md §9: x-amz-copy-source
// participates in this set like any other x-amz-* header.
func CanonicalAmzHeaders(h *dict.Dict) string {
	type kv struct{ k, v string }
	var amz []kv
	h.Range(func(name, value string) {
		lname := strings.ToLower(name)
		if lname == "x-amz-date" || !strings.HasPrefix(lname, "x-amz-") {
			return
		}
		amz = append(amz, kv{lname, value})
	})
	sort.Slice(amz, func(i, j int) bool { return amz[i].k < amz[j].k })
	var b strings.Builder
	for _, e := range amz {
		b.WriteString(e.k)
		b.WriteByte(':')
		b.WriteString(e.v)
		b.WriteByte('\n')
	}
	return b.String()
}

// CanonicalResource renders "/bucket" (if present) + resource + "?subresource"
// (if present).
func CanonicalResource(bucket, resource, subresource string) string {
	var b strings.Builder
	if bucket != "" {
		b.WriteByte('/')
		b.WriteString(bucket)
	}
	b.WriteString(resource)
	if subresource != "" {
		b.WriteByte('?')
		b.WriteString(subresource)
	}
	return b.String()
}

// StringToSign assembles the §4.4 string-to-sign.
func StringToSign(r Request) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte('\n')
	b.WriteString(r.ContentMD5)
	b.WriteByte('\n')
	b.WriteString(r.ContentType)
	b.WriteByte('\n')
	b.WriteString(r.DateOrExpires)
	b.WriteByte('\n')
	if r.Headers != nil {
		b.WriteString(CanonicalAmzHeaders(r.Headers))
	}
	b.WriteString(CanonicalResource(r.Bucket, r.Resource, r.Subresource))
	return b.String()
}

// Sign computes base64(HMAC-SHA1(secretKey, StringToSign(r))).
func Sign(secretKey string, r Request) string {
	sts := StringToSign(r)
	mac := hmac.New(sha1.New, []byte(secretKey))
	mac.Write([]byte(sts))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// AuthorizationHeader renders the "AWS <ak>:<sig>" value for the
// Authorization header.
func AuthorizationHeader(accessKey, secretKey string, r Request) string {
	return "AWS " + accessKey + ":" + Sign(secretKey, r)
}

// PresignedQuery computes the V2 presigned-URL query parameters:
// AWSAccessKeyId, Signature (url-encoded base64), and Expires. r.DateOrExpires
// must already be the decimal expiry timestamp.
func PresignedQuery(accessKey, secretKey string, r Request) url.Values {
	sig := Sign(secretKey, r)
	v := url.Values{}
	v.Set("AWSAccessKeyId", accessKey)
	v.Set("Signature", sig)
	v.Set("Expires", r.DateOrExpires)
	return v
}
