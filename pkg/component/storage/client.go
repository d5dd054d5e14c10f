// Package storage defines the client contract shared by the backends medbot
// connects to at startup and a registry used for readiness and shutdown.
package storage

import (
	"context"
	"time"
)

// Client is implemented by every backend client (vector index, Redis).
type Client interface {
	// Name returns the backend identifier, e.g. "milvus".
	Name() string
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connections.
	Close() error
}

// HealthStatus is the result of one Ping.
type HealthStatus struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   error         `json:"-"`
}

// Message returns the error text, empty when healthy.
func (s HealthStatus) Message() string {
	if s.Error == nil {
		return ""
	}
	return s.Error.Error()
}
