package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store uploads exported files to an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := export.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "site/")
type S3Store struct {
	client       *s3.Client
	bucket       string
	prefix       string
	cacheControl string
}

// NewS3Store creates a store writing into bucket under the given key prefix.
// The prefix may be empty; a non-empty prefix should end with "/".
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// WithCacheControl sets the Cache-Control header stored on uploaded objects.
func (s *S3Store) WithCacheControl(value string) *S3Store {
	s.cacheControl = value
	return s
}

// Put uploads body under prefix+key.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"export-time": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if s.cacheControl != "" {
		input.CacheControl = aws.String(s.cacheControl)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 upload of %s failed: %w", key, err)
	}
	return nil
}
