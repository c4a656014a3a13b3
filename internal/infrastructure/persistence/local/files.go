package local

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/storage"
)

const uploadChunkSize = 32 << 10

// UploadFile reads r in chunks, reporting progress, stores the bytes under
// their own key and returns them as a data: URL
func (s *Store) UploadFile(ctx context.Context, name, contentType string, r io.Reader, size int64, progress store.ProgressFunc) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	pr := storage.NewProgressReader(r, size, progress)
	var buf bytes.Buffer
	chunk := make([]byte, uploadChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := pr.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", store.ErrUploadFailed, err)
		}
	}

	url := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	if err := s.kv.Set(ctx, keyFiles+s.newID("file"), []byte(url), 0); err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrUploadFailed, err)
	}
	s.logger.Debug("File stored locally", zap.String("name", name), zap.Int("bytes", buf.Len()))
	return url, nil
}
