// Package mcp exposes storefront operations as Model Context Protocol tools
// over newline-delimited JSON-RPC.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/lumenshop/storefront/internal/ctxkey"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2025-06-18"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// maxMessageSize caps a single incoming line.
const maxMessageSize = 1024 * 1024

// ErrInvalidArguments is wrapped by handlers when tool arguments do not decode.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ToolHandler runs a tool with raw JSON arguments and returns a JSON-encodable result.
type ToolHandler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool describes a tool as listed by tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type registeredTool struct {
	Tool
	handler ToolHandler
}

// Implementation identifies the server in the initialize handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server dispatches JSON-RPC requests to registered tools.
type Server struct {
	impl   Implementation
	logger *slog.Logger

	mu     sync.RWMutex
	tools  []*registeredTool
	byName map[string]*registeredTool
}

// NewServer creates a Server with no tools.
func NewServer(impl Implementation, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		impl:   impl,
		logger: logger,
		byName: make(map[string]*registeredTool),
	}
}

// AddTool registers a tool. A tool with the same name replaces the previous one.
// A nil InputSchema is advertised as an object with no properties.
func (s *Server) AddTool(t Tool, h ToolHandler) {
	if t.InputSchema == nil {
		t.InputSchema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	rt := &registeredTool{Tool: t, handler: h}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byName[t.Name]; ok {
		for i, existing := range s.tools {
			if existing == old {
				s.tools[i] = rt
			}
		}
	} else {
		s.tools = append(s.tools, rt)
	}
	s.byName[t.Name] = rt
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tool, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.Tool
	}
	return out
}

// Serve reads newline-delimited JSON-RPC messages from in and writes
// responses to out until in is exhausted or ctx is canceled.
// Requests are handled one at a time in arrival order.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxMessageSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		resp := s.HandleMessage(ctx, raw)
		if resp == nil {
			continue
		}
		if _, err := out.Write(resp); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		if _, err := out.Write([]byte("\n")); err != nil {
			return fmt.Errorf("write newline failed: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	return nil
}

// HandleMessage processes one wire message and returns the encoded response,
// or nil for notifications and client responses.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) []byte {
	msg, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		s.logger.Debug("failed to decode message", "error", err)
		return errorResponse(nil, CodeParseError, "Parse error")
	}

	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		// Server-initiated requests are never sent, so responses are ignored.
		return nil
	}

	start := time.Now()
	result, rpcErr := s.dispatch(ctx, req)

	if !req.ID.IsValid() {
		s.logger.Debug("handled notification", "method", req.Method)
		return nil
	}

	resp := &jsonrpc.Response{ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		encoded, err := json.Marshal(result)
		if err != nil {
			s.logger.Error("failed to encode result", "method", req.Method, "error", err)
			resp.Error = &jsonrpc.Error{Code: CodeInternalError, Message: "Internal error"}
		} else {
			resp.Result = encoded
		}
	}

	data, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		s.logger.Error("failed to encode response", "method", req.Method, "error", err)
		return errorResponse(req.ID.Raw(), CodeInternalError, "Internal error")
	}
	s.logger.Debug("handled request",
		"method", req.Method,
		"latency_us", time.Since(start).Microseconds(),
	)
	return data
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callToolResult struct {
	Content           []textContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError"`
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      s.impl,
		}, nil
	case "notifications/initialized", "notifications/cancelled":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return map[string]any{"tools": s.Tools()}, nil
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return nil, &jsonrpc.Error{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method}
	}
}

func (s *Server) callTool(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return nil, &jsonrpc.Error{Code: CodeInvalidParams, Message: "Invalid params: tool name is required"}
	}

	s.mu.RLock()
	tool, ok := s.byName[params.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, &jsonrpc.Error{Code: CodeInvalidParams, Message: "Unknown tool: " + params.Name}
	}

	callID := fmt.Sprint(req.ID.Raw())
	logger := s.logger.With("tool", params.Name, "call_id", callID)
	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, logger)
	ctx = context.WithValue(ctx, ctxkey.RequestIDKey{}, callID)

	out, err := tool.handler(ctx, params.Arguments)
	if err != nil {
		// Tool failures are results the model can read, not protocol errors.
		logger.Warn("tool call failed", "error", err)
		return callToolResult{
			Content: []textContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(out)
	if err != nil {
		logger.Error("failed to encode tool output", "error", err)
		return nil, &jsonrpc.Error{Code: CodeInternalError, Message: "Internal error"}
	}
	logger.Debug("tool call succeeded")
	return callToolResult{
		Content:           []textContent{{Type: "text", Text: string(text)}},
		StructuredContent: out,
	}, nil
}

// errorResponse builds an error response by hand for cases where no decoded
// request ID is available.
func errorResponse(id any, code int, message string) []byte {
	resp := map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
		"id": id,
	}
	b, _ := json.Marshal(resp)
	return b
}

// Typed adapts a handler taking decoded arguments to a ToolHandler.
// Unknown fields are rejected.
func Typed[In any](fn func(ctx context.Context, in In) (any, error)) ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var in In
		if len(args) > 0 && !bytes.Equal(args, []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(args))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
		}
		return fn(ctx, in)
	}
}

// LoggerFromContext returns the per-call logger set for tool handlers,
// or slog.Default() outside a call.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
