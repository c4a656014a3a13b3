package cloud

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChangeChannel is the Postgres channel writes are announced on. The
// payload is the collection name.
const ChangeChannel = "storefront_changes"

// Collections that support live subscriptions
const (
	CollectionProducts  = "products"
	CollectionTickets   = "tickets"
	CollectionFeedbacks = "feedbacks"
)

// ChangeFeed announces writes to a collection and fans them out to listeners
type ChangeFeed interface {
	// Listen registers fn for collection and returns a function removing it
	Listen(collection string, fn func()) func()
	// Publish announces a change to collection
	Publish(ctx context.Context, collection string) error
	Close() error
}

// Hub is an in-process ChangeFeed
type Hub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]func()
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[uint64]func())}
}

// Listen registers fn for collection
func (h *Hub) Listen(collection string, fn func()) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.listeners[collection] == nil {
		h.listeners[collection] = make(map[uint64]func())
	}
	h.listeners[collection][id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners[collection], id)
		h.mu.Unlock()
	}
}

// Publish calls every listener of collection synchronously
func (h *Hub) Publish(_ context.Context, collection string) error {
	h.dispatch(collection)
	return nil
}

// Count returns the number of listeners registered for collection
func (h *Hub) Count(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[collection])
}

func (h *Hub) dispatch(collection string) {
	h.mu.RLock()
	fns := make([]func(), 0, len(h.listeners[collection]))
	for _, fn := range h.listeners[collection] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (h *Hub) dispatchAll() {
	h.mu.RLock()
	collections := make([]string, 0, len(h.listeners))
	for c := range h.listeners {
		collections = append(collections, c)
	}
	h.mu.RUnlock()
	for _, c := range collections {
		h.dispatch(c)
	}
}

// Close drops all listeners
func (h *Hub) Close() error {
	h.mu.Lock()
	h.listeners = make(map[string]map[uint64]func())
	h.mu.Unlock()
	return nil
}

// PGNotifier is a ChangeFeed over Postgres LISTEN/NOTIFY. One goroutine
// owns the pq.Listener and fans notifications out through a Hub, so every
// process sharing the database sees every write.
type PGNotifier struct {
	db       *gorm.DB
	listener *pq.Listener
	hub      *Hub
	logger   *zap.Logger

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewPGNotifier opens a dedicated listening connection for dsn and starts
// the dispatch goroutine
func NewPGNotifier(db *gorm.DB, dsn string, logger *zap.Logger) (*PGNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &PGNotifier{
		db:      db,
		hub:     NewHub(),
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	n.listener = pq.NewListener(dsn, time.Second, time.Minute, n.onEvent)
	if err := n.listener.Listen(ChangeChannel); err != nil {
		_ = n.listener.Close()
		return nil, err
	}
	go n.run()
	return n, nil
}

func (n *PGNotifier) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		n.logger.Warn("Change listener connection lost", zap.Error(err))
	case pq.ListenerEventReconnected:
		n.logger.Info("Change listener reconnected")
	}
}

func (n *PGNotifier) run() {
	defer close(n.stopped)
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-n.done:
			return
		case note, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// A nil notification follows a reconnect; changes may have been missed.
			if note == nil {
				n.hub.dispatchAll()
				continue
			}
			n.hub.dispatch(note.Extra)
		case <-ping.C:
			if err := n.listener.Ping(); err != nil {
				n.logger.Warn("Change listener ping failed", zap.Error(err))
			}
		}
	}
}

// Listen registers fn for collection
func (n *PGNotifier) Listen(collection string, fn func()) func() {
	return n.hub.Listen(collection, fn)
}

// Publish sends pg_notify on the change channel
func (n *PGNotifier) Publish(ctx context.Context, collection string) error {
	return n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", ChangeChannel, collection).Error
}

// Close stops the dispatch goroutine and the listening connection
func (n *PGNotifier) Close() error {
	var err error
	n.stopOnce.Do(func() {
		close(n.done)
		err = n.listener.Close()
		<-n.stopped
		_ = n.hub.Close()
	})
	return err
}
