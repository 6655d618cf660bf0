package backends

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sony/gobreaker"

	"github.com/i474232898/radar-archive/internal/radar"
)

const (
	DefaultS3Endpoint  = "s3.amazonaws.com"
	DefaultGCSEndpoint = "storage.googleapis.com"
)

// BucketConfig configures a public cloud bucket backend.
type BucketConfig struct {
	Protocol radar.Protocol
	Endpoint string
	Insecure bool

	// Region is used for buckets without an entry in BucketRegions.
	Region        string
	BucketRegions map[string]string

	// Optional credentials; empty keys mean anonymous access.
	AccessKeyID     string
	SecretAccessKey string

	Backoff   BackoffConfig
	Transport http.RoundTripper
}

// BucketFS lists and fetches objects of S3-compatible buckets (AWS S3 and
// Google Cloud Storage through its interoperability endpoint).
type BucketFS struct {
	cfg     BucketConfig
	prefix  string
	circuit *gobreaker.CircuitBreaker

	mu      sync.Mutex
	clients map[string]*minio.Client // by region
}

// NewS3 returns a BucketFS for AWS S3 URLs ("s3://bucket/key").
func NewS3(cfg BucketConfig) (*BucketFS, error) {
	cfg.Protocol = radar.ProtocolS3
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultS3Endpoint
	}
	return newBucketFS(cfg)
}

// NewGCS returns a BucketFS for Google Cloud Storage URLs ("gs://bucket/key").
func NewGCS(cfg BucketConfig) (*BucketFS, error) {
	cfg.Protocol = radar.ProtocolGCS
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGCSEndpoint
	}
	return newBucketFS(cfg)
}

func newBucketFS(cfg BucketConfig) (*BucketFS, error) {
	prefix, err := radar.BucketPrefix(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	if !cfg.Protocol.IsRemote() {
		return nil, fmt.Errorf("%w: %s is not a bucket protocol", radar.ErrInvalidValue, cfg.Protocol)
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoff
	}
	return &BucketFS{
		cfg:     cfg,
		prefix:  prefix,
		circuit: newCircuitBreaker(string(cfg.Protocol)),
		clients: make(map[string]*minio.Client),
	}, nil
}

func (b *BucketFS) Protocol() radar.Protocol {
	return b.cfg.Protocol
}

// SplitURL splits "s3://bucket/some/key" into bucket and key.
func (b *BucketFS) SplitURL(u string) (bucket, key string, err error) {
	if !strings.HasPrefix(u, b.prefix) {
		return "", "", fmt.Errorf("%w: %q does not start with %s", errBadURL, u, b.prefix)
	}
	rest := strings.TrimPrefix(u, b.prefix)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket", errBadURL, u)
	}
	return bucket, key, nil
}

func (b *BucketFS) client(bucket string) (*minio.Client, error) {
	region := b.cfg.Region
	if r, ok := b.cfg.BucketRegions[bucket]; ok {
		region = r
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[region]; ok {
		return c, nil
	}
	c, err := minio.New(b.cfg.Endpoint, &minio.Options{
		Creds:      credentials.NewStaticV4(b.cfg.AccessKeyID, b.cfg.SecretAccessKey, ""),
		Secure:     !b.cfg.Insecure,
		Region:     region,
		Transport:  b.cfg.Transport,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, false, fmt.Errorf("failed to create minio client: %w", err))
	}
	b.clients[region] = c
	return c, nil
}

// List returns the object URLs directly under dir. Sub-prefixes are skipped.
func (b *BucketFS) List(ctx context.Context, dir string) ([]string, error) {
	bucket, prefix, err := b.SplitURL(strings.TrimRight(dir, "/"))
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		prefix += "/"
	}
	c, err := b.client(bucket)
	if err != nil {
		return nil, err
	}

	result, err := doWithResilience(ctx, b.cfg.Backoff, b.circuit, func() (interface{}, error) {
		var keys []string
		for obj := range c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
			if obj.Err != nil {
				return nil, classifyError(obj.Err)
			}
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			keys = append(keys, obj.Key)
		}
		return keys, nil
	})
	if err != nil {
		if IsNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}

	keys, _ := result.([]string)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, b.prefix+bucket+"/"+k)
	}
	return out, nil
}

// Size returns the size of the object at url.
func (b *BucketFS) Size(ctx context.Context, url string) (int64, error) {
	bucket, key, err := b.SplitURL(url)
	if err != nil {
		return 0, err
	}
	c, err := b.client(bucket)
	if err != nil {
		return 0, err
	}
	result, err := doWithResilience(ctx, b.cfg.Backoff, b.circuit, func() (interface{}, error) {
		info, err := c.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
		if err != nil {
			return nil, classifyError(err)
		}
		return info.Size, nil
	})
	if err != nil {
		return 0, err
	}
	size, _ := result.(int64)
	return size, nil
}

// Download fetches url into the local file dst and returns its size.
func (b *BucketFS) Download(ctx context.Context, url, dst string) (int64, error) {
	bucket, key, err := b.SplitURL(url)
	if err != nil {
		return 0, err
	}
	c, err := b.client(bucket)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	_, err = doWithResilience(ctx, b.cfg.Backoff, b.circuit, func() (interface{}, error) {
		if err := c.FGetObject(ctx, bucket, key, dst, minio.GetObjectOptions{}); err != nil {
			return nil, classifyError(err)
		}
		return nil, nil
	})
	if err != nil {
		log.Printf("ERROR: download %s failed: %v", url, err)
		return 0, err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
