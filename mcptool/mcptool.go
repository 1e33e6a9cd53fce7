// Package mcptool implements [tabletalk.ToolExecutor] over the Model
// Context Protocol.
//
// It wraps the official MCP Go SDK client. The transport is chosen from a
// spec string: "stdio://<command>" (or a bare command line) launches a
// subprocess, "sse://<host>" or a plain http(s) URL with an "+sse" hint
// uses SSE, and plain http(s) URLs use the streamable HTTP transport.
// Connection is lazy: the first catalog fetch or tool call dials the server.
package mcptool
