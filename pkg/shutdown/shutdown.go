// Package shutdown coordinates graceful termination across independently
// started components (HTTP server, subscription manager, store).
package shutdown

import (
	"context"
	"sync"

	"github.com/cortexlabs/cortexd/pkg/logger"
)

// Handler performs cleanup for one component. It must return once it has
// finished, or when ctx is done, whichever comes first.
type Handler func(ctx context.Context, wg *sync.WaitGroup)

// Manager runs every registered Handler concurrently and waits for them,
// bounded by the context passed to Shutdown.
type Manager struct {
	mu       sync.Mutex
	handlers []Handler
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) OnShutdown(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Shutdown runs all registered handlers concurrently and blocks until they
// finish or ctx is done, whichever comes first.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	handlers := m.handlers
	m.mu.Unlock()

	if len(handlers) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(handlers))
	for _, h := range handlers {
		go func(handler Handler) {
			defer wg.Done()
			handler(ctx, &wg)
		}(h)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Infof("shutdown: all handlers finished")
	case <-ctx.Done():
		logger.Warnf("shutdown: timed out waiting for handlers: %v", ctx.Err())
	}
}
