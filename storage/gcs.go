package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
)

const uploadTimeout = time.Second * 50

type GCSStore struct {
	cl         *gcs.Client
	bucketName string
}

// bucketHandle is the part of *gcs.BucketHandle used at startup.
type bucketHandle interface {
	Attrs(ctx context.Context) (*gcs.BucketAttrs, error)
	Create(ctx context.Context, projectID string, attrs *gcs.BucketAttrs) error
}

func NewGCSStore(ctx context.Context, projectID, bucketName string) (*GCSStore, error) {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		if _, err := os.Stat("./credentials.json"); err == nil {
			os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "./credentials.json")
		}
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %v", err)
	}
	if err := ensureBucket(ctx, client.Bucket(bucketName), projectID); err != nil {
		client.Close()
		return nil, err
	}
	return &GCSStore{
		cl:         client,
		bucketName: bucketName,
	}, nil
}

// ensureBucket creates the bucket in projectID when it does not exist yet.
// Without a project the bucket has to be created out of band.
func ensureBucket(ctx context.Context, bucket bucketHandle, projectID string) error {
	_, err := bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return fmt.Errorf("read bucket attributes: %w", err)
	}
	if projectID == "" {
		return fmt.Errorf("bucket does not exist and GCS_PROJECT_ID is not set: %w", err)
	}
	if err := bucket.Create(ctx, projectID, nil); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	wc := s.cl.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	err := s.cl.Bucket(s.bucketName).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %v", err)
	}
	return nil
}

func (s *GCSStore) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}

func (s *GCSStore) Close() error {
	return s.cl.Close()
}
