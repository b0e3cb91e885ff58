// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Set by the HTTP request-ID middleware and the MCP tool handlers.
type LoggerKey struct{}

// RequestIDKey is the context key type for the request or tool-call ID.
type RequestIDKey struct{}
