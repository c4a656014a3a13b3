package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments
const DefaultHeartbeat = 30 * time.Second

// sseBufferSize bounds snapshots queued for a slow client
const sseBufferSize = 8

// SubscribeFunc registers a snapshot callback and returns its unsubscribe
type SubscribeFunc[T any] func(ctx context.Context, fn func([]T)) (store.Unsubscribe, error)

// StreamConfig tunes an SSE stream
type StreamConfig struct {
	Event     string
	Heartbeat time.Duration
	Logger    *zap.Logger
}

// Stream serves a live collection as Server-Sent Events. Each callback
// invocation becomes one event whose data is the JSON snapshot. The
// subscription is released exactly once when the client goes away.
func Stream[T any](c *gin.Context, subscribe SubscribeFunc[T], cfg StreamConfig) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}

	ctx := c.Request.Context()
	snapshots := make(chan []T, sseBufferSize)

	unsubscribe, err := subscribe(ctx, func(items []T) {
		if items == nil {
			items = []T{}
		}
		if offerLatest(snapshots, items) {
			log.Warn("SSE client too slow, dropped an older snapshot", zap.String("event", cfg.Event))
		}
	})
	if err != nil {
		log.Error("Failed to open subscription", zap.String("event", cfg.Event), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("STREAM_UNAVAILABLE", "Live updates are unavailable"))
		return
	}
	defer unsubscribe()

	// the server WriteTimeout would otherwise cut the stream
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("SSE write deadline left in place", zap.String("event", cfg.Event), zap.Error(err))
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(cfg.Heartbeat)
	defer heartbeat.Stop()

	log.Debug("SSE client connected", zap.String("event", cfg.Event))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			log.Debug("SSE client disconnected", zap.String("event", cfg.Event))
			return false
		case items := <-snapshots:
			data, err := json.Marshal(items)
			if err != nil {
				log.Error("Failed to marshal SSE snapshot", zap.Error(err))
				return true
			}
			c.SSEvent(cfg.Event, string(data))
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": heartbeat\n\n")
			return err == nil
		}
	})
}

// offerLatest queues items, evicting the oldest queued snapshot when the
// buffer is full. Every snapshot is a whole collection, so only the newest
// matters. It reports whether anything was evicted.
func offerLatest[T any](ch chan []T, items []T) bool {
	dropped := false
	for {
		select {
		case ch <- items:
			return dropped
		default:
		}
		select {
		case <-ch:
			dropped = true
		default:
		}
	}
}
