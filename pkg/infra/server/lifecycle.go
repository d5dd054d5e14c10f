// Package server manages the lifecycle of the process' servers.
package server

import "context"

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the server. It must not block once the server is serving.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the server name for identification.
	Name() string
}

// Failer is implemented by servers that can fail after Start returned.
type Failer interface {
	// Err delivers at most one fatal serve error.
	Err() <-chan error
}
