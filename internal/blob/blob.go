// Package blob stores uploaded grievance media and returns stable URLs.
package blob

import (
	"context"
	"io"
)

// Store accepts an uploaded file and returns a retrievable URL for it.
type Store interface {
	Put(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error)
}
