// Package tools provides tool execution and MCP (Model Context Protocol) integration.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/videocapture/pkg/tools/content]: text and image parts carried by tool results
//   - [github.com/germanamz/videocapture/pkg/tools/toolbox]: Tool type and ToolBox orchestrator for registering, listing, and calling tools
//   - [github.com/germanamz/videocapture/pkg/tools/mcpclient]: MCP client for subprocess and streamable HTTP servers
//   - [github.com/germanamz/videocapture/pkg/tools/mcpserver]: MCP server exposing tools over stdio or streamable HTTP
//
// The toolbox sub-package is the foundation layer. Both mcpclient and mcpserver
// depend on toolbox for the Tool type but are independent of each other.
// The mcpclient and mcpserver packages are thin wrappers around the official
// MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
package tools
