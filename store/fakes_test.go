package store_test

import (
	"bytes"
	"context"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stevemurr/shelver/store"
)

// fakeS3 is an in-process stand-in for *s3.Client keyed by bucket/key.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	emptyBody    bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func s3Key(bucket, key *string) string {
	return aws.ToString(bucket) + "/" + aws.ToString(key)
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[s3Key(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	if f.emptyBody {
		return &s3.GetObjectOutput{}, nil
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := s3Key(in.Bucket, in.Key)
	f.objects[key] = data
	f.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, s3Key(in.Bucket, in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// fakeGCS is an in-process stand-in for a Cloud Storage client keyed by
// bucket/key.
type fakeGCS struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeGCS() *fakeGCS {
	return &fakeGCS{objects: map[string][]byte{}}
}

func (f *fakeGCS) Bucket(name string) store.GCSObjects {
	return &fakeGCSBucket{client: f, name: name}
}

type fakeGCSBucket struct {
	client *fakeGCS
	name   string
}

func (b *fakeGCSBucket) NewReader(_ context.Context, key string) (io.ReadCloser, error) {
	b.client.mu.Lock()
	defer b.client.mu.Unlock()
	data, ok := b.client.objects[b.name+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeGCSBucket) NewWriter(_ context.Context, key string) io.WriteCloser {
	return &fakeGCSWriter{client: b.client, key: b.name + "/" + key}
}

func (b *fakeGCSBucket) Delete(_ context.Context, key string) error {
	b.client.mu.Lock()
	defer b.client.mu.Unlock()
	if _, ok := b.client.objects[b.name+"/"+key]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(b.client.objects, b.name+"/"+key)
	return nil
}

type fakeGCSWriter struct {
	client *fakeGCS
	key    string
	buf    bytes.Buffer
}

func (w *fakeGCSWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Close publishes the object, like the real writer.
func (w *fakeGCSWriter) Close() error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()
	w.client.objects[w.key] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}
