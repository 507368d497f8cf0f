// Package storage is the object storage port used to publish rendered
// invoices and exported GST workbooks.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object_not_found")

type UploadInput struct {
	Key         string
	ContentType string
	Body        io.Reader
}

type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts a single bucket.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
