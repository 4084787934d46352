// Package objectstore describes where uploaded resume PDFs are kept between
// the api accepting a ranking job and the worker processing it.
package objectstore

import (
	"context"
	"io"
)

// FileStorer stores resume files by key. Upload returns the location of the
// stored object.
type FileStorer interface {
	Upload(ctx context.Context, file io.Reader, bucket, key, contentType string) (string, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}
