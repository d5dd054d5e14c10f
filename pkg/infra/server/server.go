package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// DefaultShutdownTimeout is used when NewManager gets a non-positive timeout.
const DefaultShutdownTimeout = 15 * time.Second

// Manager starts a set of servers together and stops them in reverse order.
type Manager struct {
	shutdownTimeout time.Duration
	servers         []Runnable
	mu              sync.Mutex
	started         bool
}

// NewManager creates a new server manager.
func NewManager(shutdownTimeout time.Duration) *Manager {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &Manager{shutdownTimeout: shutdownTimeout}
}

// AddServer adds a server to the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start starts all servers. When one fails, the ones already started are stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("server manager already started")
	}

	for i, srv := range m.servers {
		if err := srv.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.servers[j].Stop(ctx)
			}
			return fmt.Errorf("failed to start server %s: %w", srv.Name(), err)
		}
		logger.Infow("Server started", "name", srv.Name())
	}
	m.started = true
	return nil
}

// Stop stops all servers in reverse start order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false

	var errs []error
	for i := len(m.servers) - 1; i >= 0; i-- {
		srv := m.servers[i]
		if err := srv.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", srv.Name(), err))
			continue
		}
		logger.Infow("Server stopped", "name", srv.Name())
	}
	return utilerrors.NewAggregate(errs)
}

// Run starts all servers and blocks until ctx is done or a server fails,
// then shuts everything down within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}

	failed := make(chan error, len(m.servers))
	for _, srv := range m.servers {
		f, ok := srv.(Failer)
		if !ok {
			continue
		}
		go func(name string, ch <-chan error) {
			select {
			case err, ok := <-ch:
				if ok && err != nil {
					failed <- fmt.Errorf("server %s failed: %w", name, err)
				}
			case <-ctx.Done():
			}
		}(srv.Name(), f.Err())
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Server shutting down...")
	case runErr = <-failed:
		logger.Errorw("Server failed, shutting down", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	if err := m.Stop(shutdownCtx); err != nil {
		return utilerrors.NewAggregate([]error{runErr, err})
	}
	return runErr
}
