package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Template Analysis
		{
			Name:        "detect_placeholders",
			Description: "Detect {{PLACEHOLDER}} regions in a certificate template using OCR. Results are cached; pass force to re-run detection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
					"force": map[string]interface{}{
						"type":        "boolean",
						"description": "Bypass the analysis cache and re-run detection",
						"default":     false,
					},
				},
				"required": []string{"template_path"},
			},
		},
		{
			Name:        "validate_template",
			Description: "Check whether a template carries every required placeholder (NAME) and report keys that common certificates usually add.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
				},
				"required": []string{"template_path"},
			},
		},
		{
			Name:        "analyze_template",
			Description: "Full template analysis: image metadata, every detected placeholder with its region, and layout suggestions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
				},
				"required": []string{"template_path"},
			},
		},

		// Manual Placeholder Layout
		{
			Name:        "save_placeholders",
			Description: "Store a manual placeholder layout next to the template. Manual layouts override OCR detection on later analyses.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
					"placeholders": map[string]interface{}{
						"type":        "object",
						"description": "Map of placeholder key to region, e.g. {\"NAME\": {\"left\": 100, \"top\": 200, \"width\": 300, \"height\": 60}}",
					},
				},
				"required": []string{"template_path", "placeholders"},
			},
		},
		{
			Name:        "clear_placeholders",
			Description: "Remove the manual placeholder layout for a template so the next analysis falls back to OCR detection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
				},
				"required": []string{"template_path"},
			},
		},

		// Certificate Generation
		{
			Name:        "generate_certificates",
			Description: "Start a background batch that renders one certificate per data row. Returns a job id immediately; poll get_job_status for progress.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
					"data_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the recipient data file (.csv or .xlsx)",
					},
					"column_mapping": map[string]interface{}{
						"type":        "object",
						"description": "Optional map of placeholder key to column name, e.g. {\"NAME\": \"Full Name\"}",
					},
				},
				"required": []string{"template_path", "data_path"},
			},
		},
		{
			Name:        "preview_certificate",
			Description: "Render a single certificate in memory and return it as base64-encoded PNG. Takes either inline values or a row from a data file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"template_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the certificate template image",
					},
					"data_path": map[string]interface{}{
						"type":        "string",
						"description": "Data file to pull the preview row from",
					},
					"row_index": map[string]interface{}{
						"type":        "integer",
						"description": "1-based row to preview. Default 1",
						"default":     1,
					},
					"values": map[string]interface{}{
						"type":        "object",
						"description": "Inline column values, used instead of data_path, e.g. {\"name\": \"Jane Doe\"}",
					},
					"column_mapping": map[string]interface{}{
						"type":        "object",
						"description": "Optional map of placeholder key to column name",
					},
				},
				"required": []string{"template_path"},
			},
		},

		// Job Tracking
		{
			Name:        "get_job_status",
			Description: "Get the status and progress counters of a generation job.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": map[string]interface{}{
						"type":        "string",
						"description": "Job identifier returned by generate_certificates",
					},
				},
				"required": []string{"job_id"},
			},
		},
		{
			Name:        "get_job_errors",
			Description: "List the per-row failures recorded for a generation job.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": map[string]interface{}{
						"type":        "string",
						"description": "Job identifier returned by generate_certificates",
					},
				},
				"required": []string{"job_id"},
			},
		},
		{
			Name:        "list_jobs",
			Description: "List all known generation jobs, newest first.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "export_archive",
			Description: "Bundle a finished job's certificates into a zip file inside its output directory and record the path on the job.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": map[string]interface{}{
						"type":        "string",
						"description": "Job identifier returned by generate_certificates",
					},
				},
				"required": []string{"job_id"},
			},
		},

		// Cache Maintenance
		{
			Name:        "cache_stats",
			Description: "Report template analysis cache size, hit and miss counts, and eviction totals.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "clear_cache",
			Description: "Drop every cached template analysis.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Diagnostics
		{
			Name:        "ocr_info",
			Description: "Report whether the OCR engine is available, its version, and its configured languages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
