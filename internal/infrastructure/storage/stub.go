package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

var _ ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage drains uploads and returns URLs under BaseURL. It is
// used by the cloud backend when no bucket is configured.
type StubObjectStorage struct {
	BaseURL string
}

// NewStubObjectStorage creates a stub serving under baseURL
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "https://storage.example.com"
	}
	return &StubObjectStorage{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Put consumes body so progress reporting still completes
func (s *StubObjectStorage) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if _, err := io.Copy(io.Discard, &ctxReader{ctx: ctx, r: body}); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	return s.PublicURL(key), nil
}

// Delete is a no-op
func (s *StubObjectStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// PublicURL returns BaseURL/key
func (s *StubObjectStorage) PublicURL(key string) string {
	return s.BaseURL + "/" + escapeKey(key)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
