package store

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
)

// ClientBuckets adapts a Cloud Storage client for GCSConfig.
func ClientBuckets(client *storage.Client) GCSClient {
	return clientBuckets{client: client}
}

type clientBuckets struct {
	client *storage.Client
}

func (c clientBuckets) Bucket(name string) GCSObjects {
	return BucketObjects(c.client.Bucket(name))
}

// BucketObjects adapts a single Cloud Storage bucket handle.
func BucketObjects(bucket *storage.BucketHandle) GCSObjects {
	return bucketObjects{bucket: bucket}
}

type bucketObjects struct {
	bucket *storage.BucketHandle
}

func (o bucketObjects) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := o.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NewWriter uploads in a single request; documents are small.
func (o bucketObjects) NewWriter(ctx context.Context, key string) io.WriteCloser {
	w := o.bucket.Object(key).NewWriter(ctx)
	w.ChunkSize = 0
	w.ContentType = jsonContentType
	return w
}

func (o bucketObjects) Delete(ctx context.Context, key string) error {
	return o.bucket.Object(key).Delete(ctx)
}

// gcsBackend stores documents as objects <path>.json in one bucket.
type gcsBackend struct {
	objects GCSObjects
}

func (b *gcsBackend) read(ctx context.Context, path string) ([]byte, error) {
	r, err := b.objects.NewReader(ctx, objectKey(path))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, notFound(err)
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBackend) write(ctx context.Context, path string, data []byte) error {
	w := b.objects.NewWriter(ctx, objectKey(path))
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBackend) remove(ctx context.Context, path string) error {
	err := b.objects.Delete(ctx, objectKey(path))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return notFound(err)
	}
	return err
}
