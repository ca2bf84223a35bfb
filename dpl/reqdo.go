package dpl

import (
	"context"
	"net/url"
	"strings"

	"github.com/golang/glog"

	"github.com/scality/droplet-go/dpl/connpool"
	"github.com/scality/droplet-go/dpl/dict"
	"github.com/scality/droplet-go/dpl/httpreply"
	"github.com/scality/droplet-go/dpl/meta"
	"github.com/scality/droplet-go/dpl/wire"
)

// maxAttempts bounds the req_build/reqdo retry envelope from
// SPEC_FULL.md §5: the whole build→sign→send→parse cycle is retried once
// per endpoint on transient failure before FAILURE surfaces to the caller.
const maxAttempts = 8

// Response is the result of a completed pipeline operation: the parsed
// reply, its fully materialized body (nil for HEAD/DELETE or when a
// BodyFunc was supplied instead), the plain metadata dict, and system
// metadata.
type Response struct {
	Reply    *httpreply.Reply
	Body     []byte
	Metadata *dict.Dict
	System   meta.System
}

// genHTTPRequest renders "METHOD SP /url-encoded-resource[?query] SP
// HTTP/1.1 CRLF" followed by every header in h as "Name: value CRLF", then
// the terminating blank line, per spec.md §4.1.
func genHTTPRequest(method, resource, subresource string, query url.Values, h *dict.Dict) []byte {
	var b strings.Builder
	b.WriteString(method)
	b.WriteString(" /")
	b.WriteString(encodeResourcePath(resource))
	if subresource != "" || len(query) > 0 {
		b.WriteByte('?')
		wrote := false
		if subresource != "" {
			b.WriteString(subresource)
			wrote = true
		}
		if len(query) > 0 {
			qs := query.Encode()
			if qs != "" {
				if wrote {
					b.WriteByte('&')
				}
				b.WriteString(qs)
			}
		}
	}
	b.WriteString(" HTTP/1.1\r\n")
	h.Range(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	b.WriteString("\r\n")
	return []byte(b.String())
}

// do drives one logical operation end to end: dispatch a connection,
// assemble and sign headers, write the request (and body, if any), read
// the reply, and classify the outcome — retrying across endpoints on
// transient failure per spec.md §7.
func (c *Context) do(ctx context.Context, r *Request, mask ReqMask, bodyCB httpreply.BodyFunc) (*httpreply.Reply, []byte, error) {
	headers, err := r.Build(mask)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Backend.ApplyObjectHeaders(headers, r); err != nil {
		return nil, nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		host, err := c.dispatcher.TryConnect(ctx, connpool.Options{
			VirtualHosting: r.VirtualHosting,
			Bucket:         r.Bucket,
		})
		if err != nil {
			if err == connpool.ErrAllEndpointsExhausted || err == connpool.ErrPoolFull {
				return nil, nil, newErr(CodeFailure, err, "do: %s", err)
			}
			lastErr = err
			continue
		}

		attemptHeaders := headers.Clone()
		attemptHeaders.Set("Host", host.HostName)
		if err := c.Backend.Sign(c, r, host.HostName, attemptHeaders); err != nil {
			c.pool.Release(host.Conn)
			return nil, nil, err
		}

		reqBytes := genHTTPRequest(r.Method.String(), r.Resource, r.Subresource, nil, attemptHeaders)
		bufs := [][]byte{reqBytes}
		if r.DataSet {
			bufs = append(bufs, r.Data)
		}

		if glog.V(4) {
			glog.Infof("dpl[%s]: %s %s via %s", r.TraceID, r.Method, r.Resource, host.HostName)
		}

		if err := wire.WritevAll(host.Conn, bufs, c.Transport.WriteTimeout); err != nil {
			c.pool.Terminate(host.Conn)
			c.dispatcher.BlacklistOnFailure(host)
			lastErr = newRetryableErr(CodeIO, err, "do: write failed")
			continue
		}

		reader := httpreply.NewReader(host.Conn, c.Transport.ReadTimeout)
		var reply *httpreply.Reply
		var body []byte
		if bodyCB != nil {
			reply, err = reader.ReadReply(nil, bodyCB)
		} else {
			reply, body, err = reader.ReadAll(nil)
		}
		if err != nil {
			c.pool.Terminate(host.Conn)
			c.dispatcher.BlacklistOnFailure(host)
			lastErr = newRetryableErr(CodeIO, err, "do: read failed")
			continue
		}

		outcome := httpreply.Classify(reply.StatusCode)
		if outcome.TriggersBlacklist() {
			c.pool.Terminate(host.Conn)
			c.dispatcher.BlacklistOnFailure(host)
			lastErr = newRetryableErr(CodeFailure, nil, "do: server error %d", reply.StatusCode)
			continue
		}
		if reply.ConnectionClose {
			c.pool.Terminate(host.Conn)
		} else {
			c.pool.Release(host.Conn)
		}

		if err := mapOutcomeError(outcome, reply.StatusCode); err != nil {
			return reply, body, err
		}
		return reply, body, nil
	}
	if lastErr != nil {
		return nil, nil, lastErr
	}
	return nil, nil, newErr(CodeFailure, nil, "do: exhausted retries")
}

func mapOutcomeError(outcome httpreply.Outcome, status int) error {
	switch outcome {
	case httpreply.OutcomeSuccess:
		return nil
	case httpreply.OutcomePermissionDenied:
		return newErr(CodePerm, nil, "status %d", status)
	case httpreply.OutcomeNotFound:
		return newErr(CodeNoEnt, nil, "status %d", status)
	case httpreply.OutcomeConflict:
		return newErr(CodeConflict, nil, "status %d", status)
	case httpreply.OutcomePreconditionFailed:
		return newErr(CodePrecond, nil, "status %d", status)
	case httpreply.OutcomeRedirect:
		return newErr(CodeRedirect, nil, "status %d", status)
	case httpreply.OutcomeRangeUnavailable:
		return newErr(CodeRangeUnavail, nil, "status %d", status)
	case httpreply.OutcomeServerFailure:
		return newErr(CodeFailure, nil, "status %d", status)
	default:
		return newErr(CodeFailure, nil, "status %d", status)
	}
}

// --- public operations -----------------------------------------------

// Get issues a GET for r, delivering the body through cb if non-nil
// (streaming mode), or materializing it into Response.Body otherwise.
func (c *Context) Get(ctx context.Context, r *Request, cb httpreply.BodyFunc) (*Response, error) {
	r.Method = MethodGet
	reply, body, err := c.do(ctx, r, 0, cb)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// Head issues a HEAD for r; the response body is always empty.
func (c *Context) Head(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodHead
	reply, _, err := c.do(ctx, r, 0, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, nil), nil
}

// Put issues a PUT of r.Data (if r.DataSet) with r.Metadata attached.
func (c *Context) Put(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodPut
	reply, body, err := c.do(ctx, r, 0, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// Post issues a POST of r.Data.
func (c *Context) Post(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodPost
	reply, body, err := c.do(ctx, r, 0, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// Delete issues a DELETE for r.
func (c *Context) Delete(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodDelete
	reply, body, err := c.do(ctx, r, 0, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// Copy issues a PUT carrying x-amz-copy-source (or the backend's
// equivalent) per spec.md §4.1's copy mask bit. r.CopySrc/r.CopyDirective
// must already be set.
func (c *Context) Copy(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodPut
	r.HasCopySrc = true
	reply, body, err := c.do(ctx, r, MaskCopy, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// MakeBucket creates r.Bucket via a PUT to the bucket root.
func (c *Context) MakeBucket(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodPut
	r.Resource = "/"
	reply, body, err := c.do(ctx, r, 0, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// DeleteBucket removes r.Bucket via a DELETE to the bucket root.
func (c *Context) DeleteBucket(ctx context.Context, r *Request) (*Response, error) {
	r.Method = MethodDelete
	r.Resource = "/"
	reply, body, err := c.do(ctx, r, 0, nil)
	if err != nil {
		return nil, err
	}
	return c.toResponse(reply, body), nil
}

// GenURL returns a presigned URL for r, valid expiresSeconds from now.
func (c *Context) GenURL(r *Request, expiresSeconds int) (string, error) {
	if len(c.Endpoints()) == 0 {
		return "", newErr(CodeInval, nil, "genurl: no endpoints configured")
	}
	return c.Backend.GenURL(c, r, c.genURLHost(r), expiresSeconds)
}

func (c *Context) genURLHost(r *Request) string {
	eps := c.Endpoints()
	if len(eps) == 0 {
		return ""
	}
	base := eps[0].Host
	if r.VirtualHosting && r.Bucket != "" {
		return r.Bucket + "." + base
	}
	return base
}

func (c *Context) toResponse(reply *httpreply.Reply, body []byte) *Response {
	return &Response{
		Reply:    reply,
		Body:     body,
		Metadata: c.Backend.MapHeaders(reply.Headers),
		System:   c.Backend.MapReply(reply),
	}
}

