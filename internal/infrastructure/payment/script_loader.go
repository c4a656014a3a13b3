package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tallypro/storefront/internal/domain/payment"
)

const maxScriptSize = 4 << 20

// Script is the fetched widget script
type Script struct {
	Body        []byte
	ContentType string
	FetchedAt   time.Time
}

// ScriptLoader fetches the checkout widget script once per process.
// Concurrent callers share one fetch. Failures are not cached.
type ScriptLoader struct {
	url    string
	client *http.Client
	logger *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded *Script
}

// NewScriptLoader creates a loader for the script at url
func NewScriptLoader(url string, client *http.Client, logger *zap.Logger) *ScriptLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptLoader{url: url, client: client, logger: logger}
}

// Loaded returns the cached script, if any
func (l *ScriptLoader) Loaded() (*Script, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded, l.loaded != nil
}

// Load returns the script, fetching it when not yet loaded. Errors wrap
// payment.ErrWidgetUnavailable.
func (l *ScriptLoader) Load(ctx context.Context) (*Script, error) {
	if s, ok := l.Loaded(); ok {
		return s, nil
	}

	ch := l.group.DoChan("script", func() (any, error) {
		if s, ok := l.Loaded(); ok {
			return s, nil
		}
		// Detached from the first caller so its cancellation does not fail the others.
		s, err := l.fetch(context.WithoutCancel(ctx))
		if err != nil {
			l.logger.Warn("Checkout script load failed", zap.String("url", l.url), zap.Error(err))
			return nil, err
		}
		l.mu.Lock()
		l.loaded = s
		l.mu.Unlock()
		l.logger.Info("Checkout script loaded", zap.String("url", l.url), zap.Int("bytes", len(s.Body)))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", payment.ErrWidgetUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Script), nil
	}
}

func (l *ScriptLoader) fetch(ctx context.Context) (*Script, error) {
	ctx, cancel := context.WithTimeout(ctx, l.client.Timeout+time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrWidgetUnavailable, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrWidgetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", payment.ErrWidgetUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrWidgetUnavailable, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty script", payment.ErrWidgetUnavailable)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/javascript"
	}
	return &Script{Body: body, ContentType: contentType, FetchedAt: time.Now()}, nil
}
