package export_test

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/minio/minio-go/v7"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/export"
)

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	buckets     map[string]bool
	objects     map[string][]byte
	types       map[string]string
	existsCalls int
	putErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.existsCalls++
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(data)) != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size, ETag: "etag-1"}, nil
}

func TestObjectKey(t *testing.T) {
	c := qt.New(t)

	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	key := export.ObjectKey("exports", now)
	c.Assert(key, qt.Matches, `exports/2024-03-10/[0-9a-f-]{36}\.csv`)
	c.Assert(export.ObjectKey("", now), qt.Matches, `2024-03-10/[0-9a-f-]{36}\.csv`)
	c.Assert(export.ObjectKey("exports", now), qt.Not(qt.Equals), key)
}

func TestPublisher_PublishCreatesBucketOnce(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	store := newFakeStore()
	p := export.NewPublisherWithStore(store, "poi-exports", "exports")

	first, err := p.Publish(ctx, []byte("POI_NAME\nA\n"), 1)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Bucket, qt.Equals, "poi-exports")
	c.Assert(first.Records, qt.Equals, 1)
	c.Assert(first.Size, qt.Equals, int64(11))
	c.Assert(first.ETag, qt.Equals, "etag-1")
	c.Assert(first.Key, qt.Matches, regexp.QuoteMeta("exports/")+`\d{4}-\d{2}-\d{2}/.+\.csv`)
	c.Assert(store.buckets["poi-exports"], qt.IsTrue)
	c.Assert(string(store.objects["poi-exports/"+first.Key]), qt.Equals, "POI_NAME\nA\n")
	c.Assert(store.types["poi-exports/"+first.Key], qt.Equals, "text/csv")

	second, err := p.Publish(ctx, []byte("POI_NAME\n"), 0)
	c.Assert(err, qt.IsNil)
	c.Assert(second.Key, qt.Not(qt.Equals), first.Key)
	c.Assert(store.existsCalls, qt.Equals, 1)
}

func TestPublisher_UploadError(t *testing.T) {
	c := qt.New(t)

	store := newFakeStore()
	store.putErr = errors.New("access denied")
	p := export.NewPublisherWithStore(store, "b", "")

	_, err := p.Upload(context.Background(), "k.csv", []byte("x"))
	c.Assert(err, qt.ErrorMatches, "export.Upload k.csv: access denied")
}

func TestNewPublisher(t *testing.T) {
	c := qt.New(t)

	c.Run("no endpoint", func(c *qt.C) {
		_, err := export.NewPublisher(config.ExportConfig{})
		c.Assert(errors.Is(err, export.ErrNotConfigured), qt.IsTrue)
	})

	c.Run("endpoint builds a client without connecting", func(c *qt.C) {
		p, err := export.NewPublisher(config.ExportConfig{Endpoint: "localhost:9000", Bucket: "poi-exports"})
		c.Assert(err, qt.IsNil)
		c.Assert(p.Bucket(), qt.Equals, "poi-exports")
	})
}
