package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/krishkalaria12/snap-thumbs/config"
)

// Store holds thumbnail bytes. Keys are slash separated and chosen by the caller.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	// URL is where clients can fetch the object.
	URL(key string) string
}

func New(ctx context.Context, cfg config.StorageConfig, baseURL string) (Store, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.MediaDir, strings.TrimRight(baseURL, "/")+cfg.MediaPrefix)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSProjectID, cfg.GCSBucketName)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3Key,
			SecretKey: cfg.S3Secret,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

var reIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// SanitizeFilename makes an uploaded name safe to use inside a storage key.
func SanitizeFilename(filename string) string {
	filename = reIllegalFilenameChars.ReplaceAllString(filename, "_")
	filename = strings.TrimLeft(filename, ".")
	if filename == "" {
		return "unnamed"
	}
	return filename
}
