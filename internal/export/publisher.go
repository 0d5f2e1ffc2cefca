package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/go-ports/poimap/internal/config"
)

// ErrNotConfigured is returned when publishing is requested without an
// object storage endpoint.
var ErrNotConfigured = errors.New("export publishing is not configured")

// ObjectStore is the subset of *minio.Client used by Publisher.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Receipt describes a published export.
type Receipt struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ETag        string    `json:"etag,omitempty"`
	Records     int       `json:"records"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher uploads CSV exports to a bucket. The bucket is created on first use.
type Publisher struct {
	store  ObjectStore
	bucket string
	prefix string

	mu      sync.Mutex
	ensured bool
}

// NewPublisher connects a Publisher to the MinIO/S3 endpoint in cfg.
// It returns ErrNotConfigured when cfg.Endpoint is empty.
func NewPublisher(cfg config.ExportConfig) (*Publisher, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("export.NewPublisher: %w", err)
	}
	return NewPublisherWithStore(client, cfg.Bucket, cfg.Prefix), nil
}

// NewPublisherWithStore returns a Publisher over an existing store.
func NewPublisherWithStore(store ObjectStore, bucket, prefix string) *Publisher {
	return &Publisher{store: store, bucket: bucket, prefix: prefix}
}

// Bucket returns the destination bucket name.
func (p *Publisher) Bucket() string { return p.bucket }

func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ensured {
		return nil
	}
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", p.bucket, err)
		}
		slog.Info("export bucket created", "bucket", p.bucket)
	}
	p.ensured = true
	return nil
}

// Upload stores data under key.
func (p *Publisher) Upload(ctx context.Context, key string, data []byte) (Receipt, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return Receipt{}, fmt.Errorf("export.Upload: %w", err)
	}
	info, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentType})
	if err != nil {
		return Receipt{}, fmt.Errorf("export.Upload %s: %w", key, err)
	}
	return Receipt{
		Bucket:      p.bucket,
		Key:         key,
		Size:        int64(len(data)),
		ETag:        info.ETag,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// Publish uploads an encoded selection of records rows under a fresh ObjectKey.
func (p *Publisher) Publish(ctx context.Context, data []byte, records int) (Receipt, error) {
	rcpt, err := p.Upload(ctx, ObjectKey(p.prefix, time.Now()), data)
	if err != nil {
		return Receipt{}, err
	}
	rcpt.Records = records
	slog.Info("export published", "bucket", rcpt.Bucket, "key", rcpt.Key, "records", records, "bytes", rcpt.Size)
	return rcpt, nil
}

// ObjectKey returns prefix/YYYY-MM-DD/<uuid>.csv for now in UTC.
func ObjectKey(prefix string, now time.Time) string {
	return path.Join(prefix, now.UTC().Format(time.DateOnly), uuid.NewString()+".csv")
}
