package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryGuard implements Guard with a map of expiry times.
// State is not shared across process instances.
type InMemoryGuard struct {
	mu        sync.Mutex
	held      map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryGuard creates a guard and starts its cleanup goroutine
func NewInMemoryGuard() *InMemoryGuard {
	g := &InMemoryGuard{
		held:     make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	g.wg.Add(1)
	go g.cleanupLoop()
	return g
}

// Acquire takes key unless it is held and unexpired
func (g *InMemoryGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.held[key] = now.Add(ttl)
	return true, nil
}

// Release frees key
func (g *InMemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (g *InMemoryGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

func (g *InMemoryGuard) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

func (g *InMemoryGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, exp := range g.held {
		if !now.Before(exp) {
			delete(g.held, key)
		}
	}
}

// Size returns the number of held keys (for testing/monitoring)
func (g *InMemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

var _ Guard = (*InMemoryGuard)(nil)
