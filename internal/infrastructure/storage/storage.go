// Package storage uploads module binaries and demo files to object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyKey is returned when an object key is missing
var ErrEmptyKey = errors.New("storage key is required")

// ObjectStorage stores objects and returns the URL they are served from
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ObjectKey builds a collision-free key for an uploaded file under the
// modules/ prefix, keeping the original base name readable
func ObjectKey(name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return path.Join("modules", now.UTC().Format("2006/01"), uuid.NewString()+"-"+base)
}
