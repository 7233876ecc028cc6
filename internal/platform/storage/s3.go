// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package storage provides S3-compatible object storage for user-uploaded
// content such as profile avatars.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store stores objects in an S3-compatible bucket. A custom endpoint can be
// configured to target MinIO or another S3-compatible service.
type S3Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// Config holds the settings needed to reach an S3-compatible bucket.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Store creates an object store bound to a single bucket.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Path-style addressing is required for MinIO and most
			// self-hosted S3-compatible services.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
	}, nil
}

/*
Put uploads an object and returns its public URL.

Parameters:
  - ctx: Context for cancellation and deadlines.
  - key: Object key within the bucket, e.g. "avatars/<account-id>.png".
  - contentType: MIME type stored with the object.
  - body: Object content.

Returns:
  - string: Publicly addressable URL of the stored object.
  - error: Upload failure.
*/
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage_put_failed: %w", err)
	}

	return s.URL(key), nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage_delete_failed: %w", err)
	}
	return nil
}

// URL returns the public URL for an object key.
func (s *S3Store) URL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
