package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrAssetNotFound is returned when an attachment file does not exist.
var ErrAssetNotFound = errors.New("fulfillment: asset not found")

// maxAssetBytes bounds a single attachment read.
const maxAssetBytes = 20 << 20

// AttachmentSource loads attachment bytes by file name.
type AttachmentSource interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads attachments from a local directory.
type DirSource struct {
	Dir string
}

// Load reads dir/name. Names containing path separators are rejected.
func (s DirSource) Load(_ context.Context, name string) ([]byte, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("fulfillment: invalid asset name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return nil, fmt.Errorf("fulfillment: read asset %s: %w", name, err)
	}
	return data, nil
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads attachments from an S3 bucket under an optional prefix.
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Source creates an S3-backed attachment source.
func NewS3Source(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Load fetches prefix/name from the bucket.
func (s *S3Source) Load(ctx context.Context, name string) ([]byte, error) {
	if s == nil || s.client == nil || s.bucket == "" {
		return nil, errors.New("fulfillment: s3 source not configured")
	}
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fulfillment: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("fulfillment: s3 read %s: %w", key, err)
	}
	return data, nil
}

// CachedSource memoizes successful loads from the wrapped source. Failures
// are not cached.
type CachedSource struct {
	source AttachmentSource

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewCachedSource wraps source with an in-memory cache keyed by file name.
func NewCachedSource(source AttachmentSource) *CachedSource {
	return &CachedSource{source: source, cache: make(map[string][]byte)}
}

// Load returns the cached bytes or loads and caches them.
func (c *CachedSource) Load(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := c.source.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[name] = data
	c.mu.Unlock()
	return data, nil
}

var (
	_ AttachmentSource = DirSource{}
	_ AttachmentSource = (*S3Source)(nil)
	_ AttachmentSource = (*CachedSource)(nil)
)
