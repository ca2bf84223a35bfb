// Package posix implements a minimal local-filesystem dpl.Backend: objects
// map directly onto files under a root directory, user metadata maps onto
// x-posix-meta-* headers (it is not stored with the files; Put and Get
// handle contents only, since this module doesn't carry a vdir/vfs layer —
// out of scope per spec.md §1), and list_bucket is stood in by a directory
// walk.
package posix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/scality/droplet-go/dpl"
	"github.com/scality/droplet-go/dpl/dict"
	"github.com/scality/droplet-go/dpl/httpreply"
	"github.com/scality/droplet-go/dpl/meta"
)

const metaPrefix = meta.Prefix("x-posix-meta-")

// Backend implements dpl.Backend for a local directory tree rooted at Root.
type Backend struct {
	Root string
}

// New returns a POSIX backend rooted at root.
func New(root string) *Backend { return &Backend{Root: root} }

var _ dpl.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "posix" }

func (b *Backend) ApplyObjectHeaders(h *dict.Dict, r *dpl.Request) error {
	metaPrefix.ToHeaders(r.Metadata, h)
	return nil
}

// Sign is a no-op: local filesystem access has no wire authentication.
func (b *Backend) Sign(c *dpl.Context, r *dpl.Request, host string, h *dict.Dict) error {
	return nil
}

func (b *Backend) GenURL(c *dpl.Context, r *dpl.Request, host string, expiresSeconds int) (string, error) {
	return "", fmt.Errorf("posix: presigned URLs are not supported")
}

func (b *Backend) MapHeaders(h *dict.Dict) *dict.Dict {
	return metaPrefix.FromHeaders(h)
}

func (b *Backend) MapReply(reply *httpreply.Reply) meta.System {
	return meta.ExtractSystem(reply.Headers)
}

// path resolves bucket/resource to an absolute filesystem path rooted at
// b.Root, rejecting any ".." traversal outside it.
func (b *Backend) path(bucket, resource string) (string, error) {
	clean := filepath.Clean(filepath.Join(b.Root, bucket, resource))
	rootAbs, err := filepath.Abs(b.Root)
	if err != nil {
		return "", err
	}
	cleanAbs, err := filepath.Abs(clean)
	if err != nil {
		return "", err
	}
	if cleanAbs != rootAbs && !strings.HasPrefix(cleanAbs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("posix: resource escapes root: %s/%s", bucket, resource)
	}
	return cleanAbs, nil
}

// ListBucket walks bucket's directory tree and returns every regular
// file's path relative to the bucket root, standing in for the XML/JSON
// ListBucket reply parser that's out of scope per spec.md §1.
func (b *Backend) ListBucket(bucket string) ([]string, error) {
	root, err := b.path(bucket, "")
	if err != nil {
		return nil, err
	}
	var out []string
	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(root, osPathname)
			if relErr != nil {
				return relErr
			}
			out = append(out, filepath.ToSlash(rel))
			return nil
		},
		Unsorted: false,
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("posix: list_bucket: %w", err)
	}
	return out, nil
}

// MakeBucket creates the bucket's root directory.
func (b *Backend) MakeBucket(bucket string) error {
	root, err := b.path(bucket, "")
	if err != nil {
		return err
	}
	return os.MkdirAll(root, 0o755)
}

// DeleteBucket removes the bucket's root directory; fails if not empty.
func (b *Backend) DeleteBucket(bucket string) error {
	root, err := b.path(bucket, "")
	if err != nil {
		return err
	}
	return os.Remove(root)
}

// Get reads resource's contents from disk.
func (b *Backend) Get(bucket, resource string) ([]byte, error) {
	p, err := b.path(bucket, resource)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Put writes data to resource, creating parent directories as needed.
func (b *Backend) Put(bucket, resource string, data []byte) error {
	p, err := b.path(bucket, resource)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// Delete removes resource.
func (b *Backend) Delete(bucket, resource string) error {
	p, err := b.path(bucket, resource)
	if err != nil {
		return err
	}
	return os.Remove(p)
}
