package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/certforge/certforge/internal/archive"
	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/job"
	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/ocr"
	"github.com/certforge/certforge/internal/placeholder"
	"github.com/certforge/certforge/internal/rows"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "detect_placeholders").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the appropriate template/batch/job operation
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Template Analysis
	case "detect_placeholders":
		return s.handleDetectPlaceholders(args)
	case "validate_template":
		return s.handleValidateTemplate(args)
	case "analyze_template":
		return s.handleAnalyzeTemplate(args)

	// Manual Placeholder Layout
	case "save_placeholders":
		return s.handleSavePlaceholders(args)
	case "clear_placeholders":
		return s.handleClearPlaceholders(args)

	// Certificate Generation
	case "generate_certificates":
		return s.handleGenerateCertificates(args)
	case "preview_certificate":
		return s.handlePreviewCertificate(args)

	// Job Tracking
	case "get_job_status":
		return s.handleGetJobStatus(args)
	case "get_job_errors":
		return s.handleGetJobErrors(args)
	case "list_jobs":
		return s.handleListJobs()
	case "export_archive":
		return s.handleExportArchive(args)

	// Cache Maintenance
	case "cache_stats":
		return s.handleCacheStats()
	case "clear_cache":
		return s.handleClearCache()

	// Diagnostics
	case "ocr_info":
		return s.handleOCRInfo()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Template Analysis Handlers ===

type detectPlaceholdersArgs struct {
	TemplatePath string `json:"template_path"`
	Force        bool   `json:"force"`
}

type detectPlaceholdersResult struct {
	TemplatePath string          `json:"template_path"`
	Placeholders placeholder.Map `json:"placeholders"`
	Count        int             `json:"count"`
	Manual       bool            `json:"manual"`
	Degraded     bool            `json:"degraded"`
}

func (s *Server) handleDetectPlaceholders(args json.RawMessage) (interface{}, error) {
	var a detectPlaceholdersArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Force {
		s.cache.Invalidate(a.TemplatePath)
	}
	analysis, err := s.analyzer.Analyze(context.Background(), a.TemplatePath)
	if err != nil {
		return nil, err
	}
	return detectPlaceholdersResult{
		TemplatePath: analysis.Path,
		Placeholders: analysis.Placeholders,
		Count:        len(analysis.Placeholders),
		Manual:       analysis.Manual,
		Degraded:     analysis.Degraded,
	}, nil
}

type templatePathArgs struct {
	TemplatePath string `json:"template_path"`
}

type validateTemplateResult struct {
	Valid           bool     `json:"valid"`
	PlaceholderKeys []string `json:"placeholder_keys"`
	MissingRequired []string `json:"missing_required,omitempty"`
	Degraded        bool     `json:"degraded"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

func (s *Server) handleValidateTemplate(args json.RawMessage) (interface{}, error) {
	var a templatePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	analysis, err := s.analyzer.Analyze(context.Background(), a.TemplatePath)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, key := range placeholder.RequiredKeys {
		if _, ok := analysis.Placeholders[key]; !ok {
			missing = append(missing, key)
		}
	}
	return validateTemplateResult{
		Valid:           len(missing) == 0,
		PlaceholderKeys: analysis.Placeholders.Keys(),
		MissingRequired: missing,
		Degraded:        analysis.Degraded,
		Suggestions:     analysis.Suggestions,
	}, nil
}

func (s *Server) handleAnalyzeTemplate(args json.RawMessage) (interface{}, error) {
	var a templatePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(context.Background(), a.TemplatePath)
}

// === Manual Placeholder Layout Handlers ===

type savePlaceholdersArgs struct {
	TemplatePath string          `json:"template_path"`
	Placeholders placeholder.Map `json:"placeholders"`
}

type savePlaceholdersResult struct {
	Saved bool   `json:"saved"`
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (s *Server) handleSavePlaceholders(args json.RawMessage) (interface{}, error) {
	var a savePlaceholdersArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Placeholders) == 0 {
		return nil, errors.New("no placeholder regions provided")
	}
	if err := placeholder.SaveSidecar(a.TemplatePath, a.Placeholders); err != nil {
		return nil, err
	}
	// A cached analysis no longer reflects the template's layout.
	s.cache.Invalidate(a.TemplatePath)
	return savePlaceholdersResult{
		Saved: true,
		Path:  placeholder.SidecarPath(a.TemplatePath),
		Count: len(a.Placeholders),
	}, nil
}

type clearPlaceholdersResult struct {
	Cleared bool   `json:"cleared"`
	Path    string `json:"path"`
}

func (s *Server) handleClearPlaceholders(args json.RawMessage) (interface{}, error) {
	var a templatePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := placeholder.RemoveSidecar(a.TemplatePath); err != nil {
		return nil, err
	}
	s.cache.Invalidate(a.TemplatePath)
	return clearPlaceholdersResult{
		Cleared: true,
		Path:    placeholder.SidecarPath(a.TemplatePath),
	}, nil
}

// === Certificate Generation Handlers ===

type generateCertificatesArgs struct {
	TemplatePath  string       `json:"template_path"`
	DataPath      string       `json:"data_path"`
	ColumnMapping rows.Mapping `json:"column_mapping"`
}

type generateCertificatesResult struct {
	JobID      string     `json:"job_id"`
	Status     job.Status `json:"status"`
	TotalItems int        `json:"total_items"`
}

func (s *Server) handleGenerateCertificates(args json.RawMessage) (interface{}, error) {
	var a generateCertificatesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	src, err := rows.ReadFile(a.DataPath)
	if err != nil {
		return nil, err
	}
	created, err := s.store.Create(len(src.Rows), map[string]string{
		"template": a.TemplatePath,
		"data":     a.DataPath,
	})
	if err != nil {
		return nil, err
	}

	// The batch runs in the background; callers poll get_job_status with
	// the returned id.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.coordinator.Generate(context.Background(), created.ID, a.TemplatePath, src, a.ColumnMapping); err != nil {
			s.logger.Error("generation failed",
				logging.String("job_id", created.ID),
				logging.Error(err))
		}
	}()

	return generateCertificatesResult{
		JobID:      created.ID,
		Status:     created.Status,
		TotalItems: created.TotalItems,
	}, nil
}

type previewCertificateArgs struct {
	TemplatePath  string            `json:"template_path"`
	DataPath      string            `json:"data_path"`
	RowIndex      int               `json:"row_index"`
	Values        map[string]string `json:"values"`
	ColumnMapping rows.Mapping      `json:"column_mapping"`
}

type previewCertificateResult struct {
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PNGBase64 string `json:"png_base64"`
}

func (s *Server) handlePreviewCertificate(args json.RawMessage) (interface{}, error) {
	var a previewCertificateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var (
		columns []string
		row     rows.Row
	)
	switch {
	case len(a.Values) > 0:
		columns = make([]string, 0, len(a.Values))
		for column := range a.Values {
			columns = append(columns, column)
		}
		sort.Strings(columns)
		row = rows.NewRow(columns, a.Values)
	case a.DataPath != "":
		src, err := rows.ReadFile(a.DataPath)
		if err != nil {
			return nil, err
		}
		if a.RowIndex == 0 {
			a.RowIndex = 1
		}
		if a.RowIndex < 1 || a.RowIndex > len(src.Rows) {
			return nil, fmt.Errorf("row_index %d is out of range, source has %d rows", a.RowIndex, len(src.Rows))
		}
		columns = src.Columns
		row = src.Rows[a.RowIndex-1]
	default:
		return nil, errors.New("either values or data_path is required")
	}

	img, name, err := s.coordinator.Preview(context.Background(), a.TemplatePath, columns, row, a.ColumnMapping)
	if err != nil {
		return nil, err
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	return previewCertificateResult{
		Name:      name,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		PNGBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// === Job Tracking Handlers ===

type jobIDArgs struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleGetJobStatus(args json.RawMessage) (interface{}, error) {
	var a jobIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.store.Get(a.JobID)
}

type jobErrorsResult struct {
	JobID  string        `json:"job_id"`
	Count  int           `json:"count"`
	Errors []job.Failure `json:"errors"`
}

func (s *Server) handleGetJobErrors(args json.RawMessage) (interface{}, error) {
	var a jobIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	failures, err := s.store.Errors(a.JobID)
	if err != nil {
		return nil, err
	}
	if failures == nil {
		failures = []job.Failure{}
	}
	return jobErrorsResult{
		JobID:  a.JobID,
		Count:  len(failures),
		Errors: failures,
	}, nil
}

type listJobsResult struct {
	Count int        `json:"count"`
	Jobs  []*job.Job `json:"jobs"`
}

func (s *Server) handleListJobs() (interface{}, error) {
	jobs, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	return listJobsResult{Count: len(jobs), Jobs: jobs}, nil
}

type exportArchiveResult struct {
	JobID   string `json:"job_id"`
	Archive string `json:"archive"`
	Entries int    `json:"entries"`
}

func (s *Server) handleExportArchive(args json.RawMessage) (interface{}, error) {
	var a jobIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	got, err := s.store.Get(a.JobID)
	if err != nil {
		return nil, err
	}
	if got.OutputDir == "" {
		return nil, fmt.Errorf("job %s has no generated output to archive", a.JobID)
	}
	archivePath := filepath.Join(got.OutputDir, archive.Name(got.ID))
	entries, err := archive.Create(archivePath, got.OutputDir)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.SetArchive(got.ID, archivePath); err != nil {
		return nil, err
	}
	return exportArchiveResult{
		JobID:   got.ID,
		Archive: archivePath,
		Entries: entries,
	}, nil
}

// === Cache Maintenance Handlers ===

func (s *Server) handleCacheStats() (interface{}, error) {
	return s.cache.Stats(), nil
}

type clearCacheResult struct {
	Cleared bool `json:"cleared"`
}

func (s *Server) handleClearCache() (interface{}, error) {
	s.cache.Clear()
	return clearCacheResult{Cleared: true}, nil
}

// === Diagnostics Handlers ===

func (s *Server) handleOCRInfo() (interface{}, error) {
	return ocr.Describe(context.Background(), s.engine), nil
}
