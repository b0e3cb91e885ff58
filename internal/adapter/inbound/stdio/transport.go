// Package stdio provides the stdio transport for the MCP tool server.
package stdio

import (
	"context"
	"io"
	"os"

	"github.com/lumenshop/storefront/internal/adapter/inbound/mcp"
	"github.com/lumenshop/storefront/internal/port/inbound"
)

// StdioTransport connects an MCP server to stdin/stdout.
type StdioTransport struct {
	server *mcp.Server
	in     io.Reader
	out    io.Writer
}

// Option configures a StdioTransport.
type Option func(*StdioTransport)

// WithIO replaces stdin/stdout, mainly for tests.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(t *StdioTransport) {
		t.in = in
		t.out = out
	}
}

// NewStdioTransport creates a stdio transport for the given MCP server.
func NewStdioTransport(server *mcp.Server, opts ...Option) *StdioTransport {
	t := &StdioTransport{
		server: server,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start serves MCP requests from stdin until EOF or context cancellation.
// A read blocked on stdin does not delay the return on cancellation.
func (t *StdioTransport) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- t.server.Serve(ctx, t.in, t.out)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close is a no-op; stdio has no resources of its own.
func (t *StdioTransport) Close() error {
	return nil
}

var _ inbound.Transport = (*StdioTransport)(nil)
