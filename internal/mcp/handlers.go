package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/alucardeht/morse-mcp/internal/logger"
	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/pkg/protocol"
	"github.com/alucardeht/morse-mcp/pkg/version"
)

var log = logger.ForComponent("mcp")

// Handler serves one MCP session. It is safe for concurrent use; the tool
// registry may be shared between handlers.
type Handler struct {
	registry    *tools.Registry
	callTimeout time.Duration

	mu          sync.Mutex
	initialized bool
	clientInfo  protocol.ClientInfo
}

func NewHandler(registry *tools.Registry, callTimeout time.Duration) *Handler {
	return &Handler{
		registry:    registry,
		callTimeout: callTimeout,
	}
}

// Handle dispatches req. Notifications yield a nil response.
func (h *Handler) Handle(ctx context.Context, req *Request) *Response {
	result, rpcErr := h.dispatch(ctx, req)
	if req.IsNotification() {
		if rpcErr != nil {
			log.Debug("notification failed", "method", req.Method, "error", rpcErr.Message)
		}
		return nil
	}

	resp := &Response{JSONRPC: protocol.Version, ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req *Request) (interface{}, *protocol.JSONRPCError) {
	switch req.Method {
	case MethodInitialize:
		return h.handleInitialize(req.Params)
	case MethodInitialized:
		h.mu.Lock()
		h.initialized = true
		h.mu.Unlock()
		return struct{}{}, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return h.handleListTools(), nil
	case MethodToolsCall:
		return h.handleCallTool(ctx, req.Params)
	default:
		return nil, &protocol.JSONRPCError{
			Code:    tools.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
}

func invalidParams(format string, args ...interface{}) *protocol.JSONRPCError {
	return &protocol.JSONRPCError{Code: tools.CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func (h *Handler) handleInitialize(params json.RawMessage) (interface{}, *protocol.JSONRPCError) {
	var initReq protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &initReq); err != nil {
			return nil, invalidParams("failed to parse initialize request: %v", err)
		}
	}

	h.mu.Lock()
	h.clientInfo = initReq.ClientInfo
	h.mu.Unlock()

	negotiated := negotiateProtocolVersion(initReq.ProtocolVersion)
	log.Info("client initialized",
		"client", initReq.ClientInfo.Name,
		"client_version", initReq.ClientInfo.Version,
		"protocol", negotiated)

	return protocol.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		ServerInfo: protocol.ClientInfo{
			Name:    ServerName,
			Version: version.Version,
		},
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}

	return version.ProtocolVersion
}

func (h *Handler) handleListTools() ListToolsResult {
	list := h.registry.List()
	out := make([]protocol.Tool, len(list))

	for i, t := range list {
		desc := protocol.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
		if annotated, ok := t.(tools.AnnotatedTool); ok {
			desc.Title = annotated.Title()
			desc.Annotations = annotated.Annotations()
		}
		out[i] = desc
	}

	return ListToolsResult{Tools: out}
}

// handleCallTool reports unknown tools and malformed arguments as protocol
// errors. Every other failure comes back as an isError result so the model
// can read it.
func (h *Handler) handleCallTool(ctx context.Context, params json.RawMessage) (result interface{}, rpcErr *protocol.JSONRPCError) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panic recovered",
				"panic", r,
				"stack", string(debug.Stack()))
			result, rpcErr = errorResult(fmt.Errorf("tool execution panicked: %v", r)), nil
		}
	}()

	var call protocol.ToolCall
	if len(params) == 0 {
		return nil, invalidParams("tool call parameters are required")
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, invalidParams("failed to parse tool call request: %v", err)
	}
	if call.Name == "" {
		return nil, invalidParams("tool name is required")
	}

	out, err := h.registry.ExecuteWithTimeout(ctx, call.Name, call.Arguments, h.callTimeout)
	if err != nil {
		switch code := tools.ErrorCode(err); code {
		case tools.CodeMethodNotFound, tools.CodeInvalidParams:
			return nil, &protocol.JSONRPCError{Code: code, Message: err.Error()}
		}
		log.Warn("tool call failed", "tool", call.Name, "error", err)
		return errorResult(err), nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return errorResult(fmt.Errorf("failed to marshal result: %w", err)), nil
	}

	return protocol.CallToolResult{
		Content: []protocol.Content{protocol.TextContent(string(data))},
	}, nil
}

func errorResult(err error) protocol.CallToolResult {
	return protocol.CallToolResult{
		Content: []protocol.Content{protocol.TextContent(err.Error())},
		IsError: true,
	}
}

func (h *Handler) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

func (h *Handler) ClientInfo() protocol.ClientInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientInfo
}
