// Package store is the Object Store collaborator: it fetches raw attendance
// exports and writes the per-report completion markers.
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

	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
)

// ObjectStore abstracts the S3 operations the pipeline needs, so tests can
// substitute an in-memory implementation.
type ObjectStore interface {
	// Fetch downloads one report artifact.
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	// WriteMarker records that dispatch for the given input key completed.
	WriteMarker(ctx context.Context, bucket, key string) error
	// MarkerExists reports whether the completion marker is already present.
	MarkerExists(ctx context.Context, bucket, key string) (bool, error)
}

// markerBody is the marker object's content. Only its existence matters.
const markerBody = "sent"

// S3Store implements ObjectStore against AWS S3.
type S3Store struct {
	client       *s3.Client
	markerSuffix string
}

// NewS3Store creates an S3-backed object store. markerSuffix is appended to
// the input key to form the marker key.
func NewS3Store(cfg aws.Config, markerSuffix string) *S3Store {
	return &S3Store{
		client:       s3.NewFromConfig(cfg),
		markerSuffix: markerSuffix,
	}
}

// Fetch downloads the report object into memory. Reports run hundreds to low
// thousands of rows, so buffering the whole artifact is fine.
func (s *S3Store) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// MarkerKey returns the completion marker key for an input key.
func (s *S3Store) MarkerKey(key string) string {
	return key + s.markerSuffix
}

// WriteMarker writes the completion marker next to the input artifact.
func (s *S3Store) WriteMarker(ctx context.Context, bucket, key string) error {
	markerKey := s.MarkerKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(markerKey),
		Body:        bytes.NewReader([]byte(markerBody)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("put marker s3://%s/%s: %w", bucket, markerKey, err)
	}
	logger.Info("completion marker written", "bucket", bucket, "key", markerKey)
	return nil
}

// MarkerExists checks for the completion marker via HeadObject.
func (s *S3Store) MarkerExists(ctx context.Context, bucket, key string) (bool, error) {
	markerKey := s.MarkerKey(key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(markerKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head marker s3://%s/%s: %w", bucket, markerKey, err)
	}
	return true, nil
}
