package mcp

import "github.com/alucardeht/morse-mcp/pkg/protocol"

type Request = protocol.JSONRPCRequest
type Response = protocol.JSONRPCResponse

const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// ServerName is reported to clients during initialize.
const ServerName = "morse-mcp"

type ListToolsResult struct {
	Tools []protocol.Tool `json:"tools"`
}
