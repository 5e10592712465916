package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexRepositoryTool returns the tool definition for index_repository
func indexRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_repository",
		Description: "Index a repository (local path or remote git URL) for semantic retrieval. Re-indexing an unchanged repository is a fast no-op.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repository": map[string]interface{}{
					"type":        "string",
					"description": "Local directory path or remote git URL (https)",
				},
				"access_token": map[string]interface{}{
					"type":        "string",
					"description": "Access token for private remote repositories",
				},
				"include_dirs": map[string]interface{}{
					"type":        "array",
					"description": "Restrict indexing to these directories (relative to repository root). When set, exclusion rules are disabled.",
					"items":       map[string]interface{}{"type": "string"},
				},
				"include_files": map[string]interface{}{
					"type":        "array",
					"description": "Restrict indexing to files matching these glob patterns",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude_dirs": map[string]interface{}{
					"type":        "array",
					"description": "Additional directories to exclude",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude_files": map[string]interface{}{
					"type":        "array",
					"description": "Additional file glob patterns to exclude",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"repository"},
		},
	}
}

// queryTool returns the tool definition for query
func queryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query",
		Description: "Retrieve the most relevant indexed documents for a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query text",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report which repository is prepared for retrieval, if any",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
