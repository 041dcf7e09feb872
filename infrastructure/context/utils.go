// Package context holds the timeout presets used for pings and shutdown.
package context

import (
	"context"
	"time"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown of servers and workers.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultPingTimeout bounds connectivity checks against Postgres and Redis.
	DefaultPingTimeout = 5 * time.Second
)

// WithShutdownTimeout derives a shutdown context from a fresh background context, since
// the caller's context is usually already cancelled when shutdown starts.
func WithShutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultShutdownTimeout)
}

// WithPingTimeout derives a ping context from parent.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}
