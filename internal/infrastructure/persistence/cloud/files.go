package cloud

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/storage"
)

// UploadFile streams r to object storage and returns its public URL
func (s *Store) UploadFile(ctx context.Context, name, contentType string, r io.Reader, size int64, progress store.ProgressFunc) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.ObjectKey(name, s.now())
	body := storage.NewProgressReader(r, size, progress)

	url, err := s.objects.Put(ctx, key, contentType, body, size)
	if err != nil {
		s.logger.Error("Upload failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: %v", store.ErrUploadFailed, err)
	}
	body.Complete()
	s.logger.Info("File uploaded",
		zap.String("key", key),
		zap.Int64("bytes", body.BytesRead()),
	)
	return url, nil
}
