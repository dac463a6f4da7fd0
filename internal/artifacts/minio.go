// SPDX-License-Identifier: Apache-2.0

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kusari-oss/cadsmith/internal/core/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const putTimeout = 30 * time.Second

// MinioStore uploads to an S3 compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioStore creates a client for cfg.Endpoint; no request is made until use
func NewMinioStore(cfg config.ArtifactsConfig) (*MinioStore, error) {
	if strings.Contains(cfg.Endpoint, "://") {
		return nil, fmt.Errorf("endpoint must not include scheme: %q", cfg.Endpoint)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating object storage client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, region: region}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("error creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Location implements Store
func (s *MinioStore) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// Put implements Store
func (s *MinioStore) Put(ctx context.Context, key, localPath string) error {
	putCtx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	_, err := s.client.FPutObject(putCtx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("error uploading %s: %w", key, err)
	}
	return nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "text/x-python"
	case ".log":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
