package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dmills/repovec/internal/pipeline"
	"github.com/dmills/repovec/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIndexRepository handles the index_repository tool invocation
func (s *Server) handleIndexRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	repo, ok := args["repository"].(string)
	if !ok || repo == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "repository parameter is required", map[string]interface{}{
			"param":  "repository",
			"reason": "missing or empty",
		})
	}

	token, _ := args["access_token"].(string)

	req := pipeline.PrepareRequest{
		RepoPathOrURL: repo,
		AccessToken:   token,
		Filters: types.FilterRules{
			IncludeDirs:  getStringSlice(args, "include_dirs"),
			IncludeFiles: getStringSlice(args, "include_files"),
			ExcludeDirs:  getStringSlice(args, "exclude_dirs"),
			ExcludeFiles: getStringSlice(args, "exclude_files"),
		},
	}

	result, err := s.pipeline.Prepare(ctx, req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":         true,
		"identity":        result.Identity,
		"documents":       result.Documents,
		"files_total":     result.Stats.TotalFiles,
		"files_unchanged": result.Stats.UnchangedFiles,
		"files_new":       result.Stats.NewFiles,
		"files_changed":   result.Stats.ChangedFiles,
		"files_removed":   result.Stats.RemovedFiles,
		"embedded":        result.Stats.Embedded,
		"skipped":         result.Stats.Skipped,
		"full_rebuild":    result.Stats.FullRebuild,
		"dimension":       result.Stats.Dimension,
		"duration_ms":     result.Stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQuery handles the query tool invocation
func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	// Query degrades to an empty result when nothing has been indexed yet;
	// get_status is the way to check preparedness.
	result, err := s.pipeline.Query(ctx, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	matches := make([]map[string]interface{}, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, map[string]interface{}{
			"rank":        m.Rank,
			"score":       m.Score,
			"file_path":   m.Document.Meta.FilePath,
			"title":       m.Document.Meta.Title,
			"type":        m.Document.Meta.Type,
			"chunk_index": m.Document.Meta.ChunkIndex,
			"is_chunked":  m.Document.Meta.IsChunked,
			"content":     m.Document.Text,
		})
	}

	response := map[string]interface{}{
		"query":   result.Query,
		"k":       result.K,
		"count":   len(matches),
		"matches": matches,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity := s.pipeline.Identity()
	response := map[string]interface{}{
		"prepared": identity != "",
	}
	if identity != "" {
		response["identity"] = identity
	} else {
		response["message"] = "No repository prepared. Use index_repository to prepare one."
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
