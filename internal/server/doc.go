// Package server implements the MCP (Model Context Protocol) server for
// certificate generation tools.
//
// This package provides a JSON-RPC 2.0 server that exposes template
// analysis and batch certificate generation through the MCP protocol.
// It's designed to work with Claude and other MCP-compatible clients.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// The server provides 14 tools organized into categories:
//
// Template Analysis:
//   - detect_placeholders: Find {{PLACEHOLDER}} regions via OCR
//   - validate_template: Check required placeholders are present
//   - analyze_template: Full analysis with image metadata
//
// Manual Placeholder Layout:
//   - save_placeholders: Store a manual layout beside the template
//   - clear_placeholders: Remove the manual layout
//
// Certificate Generation:
//   - generate_certificates: Start a background batch, returns a job id
//   - preview_certificate: Render one certificate as base64 PNG
//
// Job Tracking:
//   - get_job_status: Status and progress counters
//   - get_job_errors: Per-row failure records
//   - list_jobs: All known jobs, newest first
//   - export_archive: Bundle a job's output into a zip
//
// Cache Maintenance:
//   - cache_stats: Analysis cache counters
//   - clear_cache: Drop all cached analyses
//
// Diagnostics:
//   - ocr_info: OCR engine availability and version
//
// # Background Jobs
//
// generate_certificates returns as soon as the job record exists; the
// batch itself runs on a server goroutine and persists its progress
// through the job store. Run does not return until every started batch
// has reached a terminal state, so closing stdin never abandons a job
// mid-flight.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New(server.Options{ /* service instances */ })
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
