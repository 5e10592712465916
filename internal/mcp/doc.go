// Package mcp implements the Model Context Protocol (MCP) server for repovec.
//
// The MCP server exposes three tools to AI coding assistants:
//   - index_repository: Index a local or remote repository for retrieval
//   - query: Retrieve the most relevant documents for a natural language query
//   - get_status: Report which repository is currently prepared
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server listens on stdin and writes responses to stdout, so all
// application logging goes to stderr.
//
// The server is typically started via the serve command:
//
//	repovec serve
package mcp
