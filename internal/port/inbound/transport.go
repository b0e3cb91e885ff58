// Package inbound defines the inbound port interfaces for the storefront.
// Inbound adapters (HTTP, stdio MCP) implement these interfaces so the
// command layer can run them the same way.
package inbound

import (
	"context"
)

// Transport is a long-running inbound adapter.
type Transport interface {
	// Start serves requests until the context is cancelled or an error occurs.
	// Returns nil on graceful shutdown, error on failure.
	Start(ctx context.Context) error

	// Close shuts the transport down and releases its resources.
	Close() error
}
