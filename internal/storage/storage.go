// Package storage archives uploaded import rosters so every bulk invitation
// run can be traced back to the exact file that drove it.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Storage persists roster archives on a local disk or S3 backend.
type Storage interface {
	// Store saves content under the given key.
	Store(ctx context.Context, key string, content io.Reader, contentType string) error

	// Retrieve gets an archive by key.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an archive by key.
	Delete(ctx context.Context, key string) error

	// GetURL returns a signed URL (S3) or a servable path (local).
	GetURL(ctx context.Context, key string, expiration time.Duration) (string, error)

	// Exists checks if an archive exists.
	Exists(ctx context.Context, key string) (bool, error)

	// GetMetadata returns archive metadata.
	GetMetadata(ctx context.Context, key string) (FileMetadata, error)
}

type FileMetadata struct {
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
}

// ImportKey builds the archive key for a roster uploaded by the given admin:
// imports/year/month/uuid_admin.csv
func ImportKey(adminID string) string {
	now := time.Now()
	return fmt.Sprintf("imports/%d/%02d/%s_%s.csv",
		now.Year(),
		now.Month(),
		uuid.New().String(),
		sanitizeKeyPart(adminID),
	)
}

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

type StorageConfig struct {
	Type      StorageType
	LocalPath string
	S3        *S3Config
}

type S3Config struct {
	Bucket string
	Region string
}
