// Package haystack acquires the byte regions sigscan searches.
//
// Plain local files are memory-mapped read-only. Files ending in .lz4 or .zst
// are decompressed into memory, and s3://bucket/key sources are downloaded
// with an S3-compatible client (the same suffix rules apply to the key).
package haystack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pierrec/lz4/v4"

	"github.com/tremwil/scanner-bench/internal/logging"
)

var (
	// ErrClosed is returned when using a Haystack after Close.
	ErrClosed = errors.New("haystack: closed")
	// ErrBadSource is returned for a source string that cannot be parsed.
	ErrBadSource = errors.New("haystack: bad source")
)

// Kind describes how a haystack was acquired.
type Kind string

const (
	KindMmap Kind = "mmap"
	KindRead Kind = "read"
	KindLZ4  Kind = "lz4"
	KindZstd Kind = "zstd"
	KindS3   Kind = "s3"
)

// Options configures Load. The zero value loads local files and reads S3
// credentials from the environment.
type Options struct {
	// Endpoint is the S3-compatible endpoint, default "s3.amazonaws.com".
	Endpoint string
	// AccessKey and SecretKey default to AWS_ACCESS_KEY_ID and
	// AWS_SECRET_ACCESS_KEY.
	AccessKey string
	SecretKey string
	// Insecure disables TLS for the S3 endpoint.
	Insecure bool

	Logger *logging.Logger
}

// Haystack is a read-only byte region. Bytes is valid until Close.
type Haystack struct {
	data    []byte
	kind    Kind
	source  string
	closed  atomic.Bool
	release func([]byte) error
}

// Load acquires the region named by src.
func Load(ctx context.Context, src string, opts Options) (*Haystack, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	log = log.WithSource(src)
	start := time.Now()

	var (
		h   *Haystack
		err error
	)
	if strings.HasPrefix(src, "s3://") {
		h, err = loadS3(ctx, src, opts)
	} else {
		h, err = loadFile(src)
	}
	if err != nil {
		log.LogLoad(ctx, "", 0, 0, err)
		return nil, err
	}
	log.LogLoad(ctx, string(h.kind), len(h.data), time.Since(start), nil)
	return h, nil
}

// Bytes returns the region, or nil after Close.
func (h *Haystack) Bytes() []byte {
	if h.closed.Load() {
		return nil
	}
	return h.data
}

func (h *Haystack) Len() int { return len(h.data) }
func (h *Haystack) Kind() Kind { return h.kind }
func (h *Haystack) Source() string { return h.source }

// Close releases the region. It is idempotent.
func (h *Haystack) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	if h.release != nil && h.data != nil {
		return h.release(h.data)
	}
	return nil
}

func loadFile(path string) (*Haystack, error) {
	if kind, ok := compressed(path); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := decode(kind, f)
		if err != nil {
			return nil, fmt.Errorf("haystack: decode %s: %w", path, err)
		}
		return &Haystack{data: data, kind: kind, source: path}, nil
	}

	data, release, kind, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	return &Haystack{data: data, kind: kind, source: path, release: release}, nil
}

// compressed reports the decoder a name's suffix selects.
func compressed(name string) (Kind, bool) {
	switch {
	case strings.HasSuffix(name, ".lz4"):
		return KindLZ4, true
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return KindZstd, true
	}
	return "", false
}

func decode(kind Kind, r io.Reader) ([]byte, error) {
	switch kind {
	case KindLZ4:
		return io.ReadAll(lz4.NewReader(r))
	case KindZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	}
	return io.ReadAll(r)
}

// parseS3 splits "s3://bucket/key".
func parseS3(src string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(src, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadSource, src)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q: want s3://bucket/key", ErrBadSource, src)
	}
	return bucket, key, nil
}

func (o Options) client() (*minio.Client, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	access, secret := o.AccessKey, o.SecretKey
	if access == "" {
		access = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if secret == "" {
		secret = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: !o.Insecure,
	})
}

func loadS3(ctx context.Context, src string, opts Options) (*Haystack, error) {
	bucket, key, err := parseS3(src)
	if err != nil {
		return nil, err
	}
	client, err := opts.client()
	if err != nil {
		return nil, err
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	kind, ok := compressed(key)
	if !ok {
		kind = KindS3
	}
	data, err := decode(kind, obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("haystack: %s: %w", src, os.ErrNotExist)
		}
		return nil, err
	}
	return &Haystack{data: data, kind: kind, source: src}, nil
}
