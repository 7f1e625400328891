package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/certforge/certforge/internal/batch"
	"github.com/certforge/certforge/internal/job"
	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/ocr"
	"github.com/certforge/certforge/internal/template"
)

// Server handles MCP protocol communication
type Server struct {
	engine      ocr.Engine
	cache       *template.Cache
	analyzer    *template.Analyzer
	store       *job.Store
	coordinator *batch.Coordinator
	logger      *slog.Logger

	// wg tracks generation jobs started by tools/call so Run can wait
	// for them to reach a terminal state before returning.
	wg sync.WaitGroup
}

// Options carries the service instances a Server dispatches tool calls to.
type Options struct {
	Engine      ocr.Engine
	Cache       *template.Cache
	Analyzer    *template.Analyzer
	Store       *job.Store
	Coordinator *batch.Coordinator
	Logger      *slog.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	return &Server{
		engine:      opts.Engine,
		cache:       opts.Cache,
		analyzer:    opts.Analyzer,
		store:       opts.Store,
		coordinator: opts.Coordinator,
		logger:      logging.WithComponent(opts.Logger, "server"),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout.
// It returns after stdin closes and every generation job started through
// tools/call has finished.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(os.Stdin)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", logging.Error(err))
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", logging.Error(err))
			}
		}
	}

	// Half-finished jobs would strand their recorded progress, so pending
	// generation work runs to completion before the server exits.
	s.wg.Wait()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "certforge",
				"version": "0.1.0",
			},
		},
	}
}
