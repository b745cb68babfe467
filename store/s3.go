package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const jsonContentType = "application/json"

// s3Backend stores documents as objects <path>.json in one bucket.
type s3Backend struct {
	client S3API
	bucket string
}

func (b *s3Backend) read(ctx context.Context, path string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound(err)
		}
		return nil, err
	}
	if out == nil || out.Body == nil {
		return nil, ErrNoData
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of s3://%s/%s: %w", b.bucket, objectKey(path), err)
	}
	return data, nil
}

func (b *s3Backend) write(ctx context.Context, path string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey(path)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(jsonContentType),
	})
	return err
}

func (b *s3Backend) remove(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(path)),
	})
	return err
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
