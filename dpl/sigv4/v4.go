// Package sigv4 implements AWS Signature Version 4: the canonical request,
// string-to-sign, scoped signing-key derivation, and both the header and
// presigned-query output forms, per spec.md §4.5.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/scality/droplet-go/dpl/dict"
)

// EmptySHA256Hex is hex(SHA256("")), the payload hash for any request with
// no body, per spec.md §8.
const EmptySHA256Hex = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const timeFormat = "20060102T150405Z"
const dateFormat = "20060102"

// UnsignedPayload is the literal sentinel used in place of a payload hash
// when the caller opts out of signing the body.
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// Request is the subset of a request sigv4 needs. Time is injected so
// tests can pin it, per spec.md §4.5 "Determinism"; production callers
// pass time.Now().UTC().
type Request struct {
	Method   string
	Resource string // url-encoded resource, leading "/"
	Query    url.Values
	Headers  *dict.Dict // staged headers; nil means "query form, synthesize host:<host>"
	Host     string     // used for the synthetic canonical header set in query form
	Region   string
	Time     time.Time

	// PayloadSHA256Hex, if non-empty, is used verbatim as the payload
	// hash (e.g. from an already-set x-amz-content-sha256 header).
	// UnsignedPayload is a valid value here. If empty, Payload is hashed.
	PayloadSHA256Hex string
	Payload          []byte
}

// CanonicalHeaders lower-cases every header name, trims (but does not
// collapse internal whitespace in) the value, sorts by lower-cased name,
// and joins "name:value\n" per entry — see the Open Question in spec.md §9:
// internal whitespace runs are preserved as received, matching the
// reference implementation rather than the stricter AWS specification.
func CanonicalHeaders(h *dict.Dict) (canonical string, signedHeaders string) {
	type kv struct{ k, v string }
	var all []kv
	h.Range(func(name, value string) {
		all = append(all, kv{strings.ToLower(name), strings.TrimSpace(value)})
	})
	sort.Slice(all, func(i, j int) bool { return all[i].k < all[j].k })

	var cb strings.Builder
	names := make([]string, 0, len(all))
	for _, e := range all {
		cb.WriteString(e.k)
		cb.WriteByte(':')
		cb.WriteString(e.v)
		cb.WriteByte('\n')
		names = append(names, e.k)
	}
	return cb.String(), strings.Join(names, ";")
}

// syntheticHostHeaders builds the "host:<host>" single-entry canonical
// header set used for the query (presigned-URL) form when no staged
// header dict is supplied.
func syntheticHostHeaders(host string) (string, string) {
	return "host:" + host + "\n", "host"
}

// CanonicalQueryString url-encodes (strictly — even '/') each key/value,
// sorts by key then value, and joins with "&"/"=". With alreadyEncoded=true
// keys and values are taken as already percent-encoded and are not encoded
// a second time. CanonicalRequest, and so both HeaderForm and QueryForm,
// passes false, since QueryForm stores its parameters unencoded.
func CanonicalQueryString(q url.Values, alreadyEncoded bool) string {
	type kv struct{ k, v string }
	var pairs []kv
	for k, vs := range q {
		for _, v := range vs {
			if alreadyEncoded {
				pairs = append(pairs, kv{k, v})
			} else {
				pairs = append(pairs, kv{strictEncode(k), strictEncode(v)})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	return b.String()
}

// strictEncode percent-encodes every byte outside the RFC 3986 unreserved
// set, including '/'  — the "strict" variant spec.md §4.1 calls out for
// V4 canonicalization, as opposed to the resource-path slash-preserving
// variant.
func strictEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// payloadHash resolves the payload hash: PayloadSHA256Hex verbatim if set,
// else hex(SHA256(Payload)).
func (r Request) payloadHash() string {
	if r.PayloadSHA256Hex != "" {
		return r.PayloadSHA256Hex
	}
	sum := sha256.Sum256(r.Payload)
	return hex.EncodeToString(sum[:])
}

// CanonicalRequest assembles the §4.5 canonical request and returns it
// alongside the signed-headers list that must also appear in the
// Authorization header / X-Amz-SignedHeaders parameter.
func (r Request) CanonicalRequest(queryAlreadyEncoded bool) (canonicalRequest, signedHeaders, payloadHash string) {
	var canonHeaders string
	if r.Headers != nil {
		canonHeaders, signedHeaders = CanonicalHeaders(r.Headers)
	} else {
		canonHeaders, signedHeaders = syntheticHostHeaders(r.Host)
	}
	payloadHash = r.payloadHash()

	cr := strings.Join([]string{
		r.Method,
		r.Resource,
		CanonicalQueryString(r.Query, queryAlreadyEncoded),
		canonHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
	return cr, signedHeaders, payloadHash
}

// scope returns "<YYYYMMDD>/<region>/s3/aws4_request".
func scope(t time.Time, region string) string {
	return t.Format(dateFormat) + "/" + region + "/s3/aws4_request"
}

// StringToSign assembles the §4.5 string-to-sign from a canonical request.
func StringToSign(t time.Time, region, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return strings.Join([]string{
		"AWS4-HMAC-SHA256",
		t.Format(timeFormat),
		scope(t, region),
		hex.EncodeToString(sum[:]),
	}, "\n")
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SigningKey derives kSigning = HMAC chain over AWS4<secret> -> date ->
// region -> "s3" -> "aws4_request".
func SigningKey(secretKey string, t time.Time, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(t.Format(dateFormat)))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte("s3"))
	return hmacSHA256(kService, []byte("aws4_request"))
}

// Sign returns hex(HMAC-SHA256(signingKey, stringToSign)).
func Sign(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

// HeaderForm computes the Authorization header value for r, along with the
// x-amz-date value the caller must also stage as a header before hashing
// (CanonicalRequest reads r.Headers, so callers should add x-amz-date to
// r.Headers, and x-amz-content-sha256 if not already present, before
// calling HeaderForm).
func HeaderForm(accessKey, secretKey string, r Request) (authorization string) {
	cr, signedHeaders, _ := r.CanonicalRequest(false)
	sts := StringToSign(r.Time, r.Region, cr)
	key := SigningKey(secretKey, r.Time, r.Region)
	sig := Sign(key, sts)
	return fmt.Sprintf("AWS4-HMAC-SHA256 Credential=%s/%s,SignedHeaders=%s,Signature=%s",
		accessKey, scope(r.Time, r.Region), signedHeaders, sig)
}

// QueryForm computes the presigned-URL query parameters for r. r.Headers
// should be nil (or contain only "host") so CanonicalRequest synthesizes
// the "host:<host>" canonical header set per spec.md §4.5.
func QueryForm(accessKey, secretKey string, r Request, expiresSeconds int) url.Values {
	credential := accessKey + "/" + scope(r.Time, r.Region)

	q := url.Values{}
	if r.Query != nil {
		for k, vs := range r.Query {
			q[k] = append([]string(nil), vs...)
		}
	}
	q.Set("X-Amz-Algorithm", "AWS4-HMAC-SHA256")
	q.Set("X-Amz-Credential", credential)
	q.Set("X-Amz-Date", r.Time.Format(timeFormat))
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", expiresSeconds))
	q.Set("X-Amz-SignedHeaders", "host")

	signReq := r
	signReq.Query = q
	cr, _, _ := signReq.CanonicalRequest(false)
	sts := StringToSign(r.Time, r.Region, cr)
	key := SigningKey(secretKey, r.Time, r.Region)
	sig := Sign(key, sts)

	q.Set("X-Amz-Signature", sig)
	return q
}
