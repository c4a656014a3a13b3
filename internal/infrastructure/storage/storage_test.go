package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	infraconfig "github.com/tallypro/storefront/internal/infrastructure/config"
)

func TestProgressReader(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	var got []float64
	r := NewProgressReader(bytes.NewReader(data), int64(len(data)), func(p float64) {
		got = append(got, p)
	})

	buf := make([]byte, 250)
	for {
		_, err := r.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []float64{25, 50, 75, 100}, got)
	assert.Equal(t, int64(1000), r.BytesRead())
}

func TestProgressReader_UnknownSize(t *testing.T) {
	var got []float64
	r := NewProgressReader(strings.NewReader("abc"), 0, func(p float64) {
		got = append(got, p)
	})
	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100}, got)
}

func TestProgressReader_Complete(t *testing.T) {
	var got []float64
	r := NewProgressReader(strings.NewReader("abcd"), 4, func(p float64) {
		got = append(got, p)
	})
	buf := make([]byte, 2)
	_, err := r.Read(buf)
	require.NoError(t, err)

	r.Complete()
	r.Complete()
	assert.Equal(t, []float64{50, 100}, got)
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	key := ObjectKey("C:\\builds\\gst-pro.tcp", now)
	assert.True(t, strings.HasPrefix(key, "modules/2026/03/"))
	assert.True(t, strings.HasSuffix(key, "-gst-pro.tcp"))

	assert.True(t, strings.HasSuffix(ObjectKey("", now), "-file"))
	assert.NotEqual(t, ObjectKey("a.tcp", now), ObjectKey("a.tcp", now))
}

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name      string
		public    string
		endpoint  string
		pathStyle bool
		want      string
	}{
		{"public base wins", "https://cdn.tallypro.in", "http://minio:9000", true, "https://cdn.tallypro.in/modules/a%20b.tcp"},
		{"path style", "", "http://minio:9000", true, "http://minio:9000/files/modules/a%20b.tcp"},
		{"virtual host", "", "https://s3.ap-south-1.amazonaws.com", false, "https://files.s3.ap-south-1.amazonaws.com/modules/a%20b.tcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectURL(tt.public, tt.endpoint, "files", "modules/a b.tcp", tt.pathStyle))
		})
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	_, err := NewS3ObjectStorage(nil)
	require.Error(t, err)

	_, err = NewS3ObjectStorage(&infraconfig.StorageConfig{Bucket: "b"})
	require.Error(t, err)

	s, err := NewS3ObjectStorage(&infraconfig.StorageConfig{
		Bucket:       "files",
		AccessKey:    "ak",
		SecretKey:    "sk",
		Region:       "ap-south-1",
		Endpoint:     "minio:9000",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/files/k.bin", s.PublicURL("k.bin"))
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3ObjectStorage(&infraconfig.StorageConfig{
		Bucket:       "files",
		AccessKey:    "ak",
		SecretKey:    "sk",
		Region:       "ap-south-1",
		Endpoint:     "minio:9000",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	url, expires, err := s.GenerateDownloadURL(context.Background(), "modules/gst-pro.tcp", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/files/modules/gst-pro.tcp")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, 5*time.Second)

	_, _, err = s.GenerateDownloadURL(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestStubObjectStorage(t *testing.T) {
	s := NewStubObjectStorage("https://files.local/")
	ctx := context.Background()

	var last float64
	body := NewProgressReader(strings.NewReader("module-bytes"), 12, func(p float64) { last = p })
	url, err := s.Put(ctx, "modules/x.tcp", "application/octet-stream", body, 12)
	require.NoError(t, err)
	assert.Equal(t, "https://files.local/modules/x.tcp", url)
	assert.Equal(t, float64(100), last)

	_, err = s.Put(ctx, "", "", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrEmptyKey)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Put(cancelled, "k", "", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, s.Delete(ctx, "k"))
}
