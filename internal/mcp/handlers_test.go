package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/internal/tools/translate"
	"github.com/alucardeht/morse-mcp/pkg/protocol"
	"github.com/alucardeht/morse-mcp/pkg/version"
)

type failingTool struct {
	err   error
	panic bool
}

func (t *failingTool) Name() string            { return "broken" }
func (t *failingTool) Description() string     { return "always fails" }
func (t *failingTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *failingTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if t.panic {
		panic("boom")
	}
	return nil, t.err
}

func newTestHandler(t *testing.T, extra ...tools.Tool) *Handler {
	t.Helper()
	registry := tools.NewRegistry()
	registry.Register(tools.NewHealthTool(registry))
	if err := registry.RegisterAll(translate.GetTools(translate.Options{MaxInputBytes: 64})); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := registry.RegisterAll(extra); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return NewHandler(registry, 0)
}

func call(t *testing.T, h *Handler, method string, params interface{}) *Response {
	t.Helper()
	req := &Request{JSONRPC: "2.0", ID: float64(1), Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		req.Params = data
	}
	resp := h.Handle(context.Background(), req)
	if resp == nil {
		t.Fatalf("%s: expected a response", method)
	}
	return resp
}

func toolResult(t *testing.T, resp *Response) protocol.CallToolResult {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", resp.Error)
	}
	res, ok := resp.Result.(protocol.CallToolResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("expected one text content, got %+v", res.Content)
	}
	return res
}

func TestInitialize(t *testing.T) {
	h := newTestHandler(t)

	t.Run("NegotiatesSupportedVersion", func(t *testing.T) {
		resp := call(t, h, MethodInitialize, map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"clientInfo":      map[string]string{"name": "probe", "version": "9"},
		})
		res := resp.Result.(protocol.InitializeResult)
		if res.ProtocolVersion != "2024-11-05" {
			t.Errorf("expected 2024-11-05, got %s", res.ProtocolVersion)
		}
		if res.ServerInfo.Name != ServerName || res.ServerInfo.Version != version.Version {
			t.Errorf("unexpected server info %+v", res.ServerInfo)
		}
		if h.ClientInfo().Name != "probe" {
			t.Errorf("client info not stored: %+v", h.ClientInfo())
		}
	})

	t.Run("FallsBackToLatest", func(t *testing.T) {
		resp := call(t, h, MethodInitialize, map[string]interface{}{"protocolVersion": "1999-01-01"})
		if got := resp.Result.(protocol.InitializeResult).ProtocolVersion; got != version.ProtocolVersion {
			t.Errorf("expected %s, got %s", version.ProtocolVersion, got)
		}
	})

	t.Run("RejectsMalformedParams", func(t *testing.T) {
		resp := call(t, h, MethodInitialize, []int{1})
		if resp.Error == nil || resp.Error.Code != tools.CodeInvalidParams {
			t.Errorf("expected invalid params, got %+v", resp.Error)
		}
	})
}

func TestNotifications(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), &Request{JSONRPC: "2.0", Method: MethodInitialized})
	if resp != nil {
		t.Errorf("notifications must not be answered, got %+v", resp)
	}
	if !h.Initialized() {
		t.Error("expected initialized after notification")
	}

	if resp := h.Handle(context.Background(), &Request{JSONRPC: "2.0", Method: "notifications/cancelled"}); resp != nil {
		t.Error("unknown notifications must be ignored silently")
	}
}

func TestPingAndUnknownMethod(t *testing.T) {
	h := newTestHandler(t)

	if resp := call(t, h, MethodPing, nil); resp.Error != nil {
		t.Errorf("ping failed: %+v", resp.Error)
	}

	resp := call(t, h, "resources/list", nil)
	if resp.Error == nil || resp.Error.Code != tools.CodeMethodNotFound {
		t.Errorf("expected method not found, got %+v", resp.Error)
	}
}

func TestListTools(t *testing.T) {
	h := newTestHandler(t)
	resp := call(t, h, MethodToolsList, nil)

	res := resp.Result.(ListToolsResult)
	want := []string{"health", "morse_alphabet", "morse_decode", "morse_encode", "morse_validate"}
	if len(res.Tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(res.Tools))
	}
	for i, name := range want {
		tool := res.Tools[i]
		if tool.Name != name {
			t.Errorf("tool %d: expected %s, got %s", i, name, tool.Name)
		}
		if tool.Title == "" || tool.Annotations == nil {
			t.Errorf("%s: missing title or annotations", name)
		}
		if !json.Valid(tool.InputSchema) {
			t.Errorf("%s: schema is not valid JSON", name)
		}
	}
}

func TestCallTool(t *testing.T) {
	h := newTestHandler(t,
		&failingTool{err: errors.New("disk on fire")},
	)

	t.Run("Encode", func(t *testing.T) {
		resp := call(t, h, MethodToolsCall, map[string]interface{}{
			"name":      "morse_encode",
			"arguments": map[string]string{"text": "sos"},
		})
		res := toolResult(t, resp)
		if res.IsError {
			t.Fatalf("unexpected tool error: %s", res.Content[0].Text)
		}

		var out struct {
			Morse string `json:"morse"`
		}
		if err := json.Unmarshal([]byte(res.Content[0].Text), &out); err != nil {
			t.Fatalf("content is not JSON: %v", err)
		}
		if out.Morse != "... --- ..." {
			t.Errorf("expected SOS, got %q", out.Morse)
		}
	})

	t.Run("UnknownTool", func(t *testing.T) {
		resp := call(t, h, MethodToolsCall, map[string]interface{}{"name": "nope"})
		if resp.Error == nil || resp.Error.Code != tools.CodeMethodNotFound {
			t.Errorf("expected method not found, got %+v", resp.Error)
		}
	})

	t.Run("MissingName", func(t *testing.T) {
		resp := call(t, h, MethodToolsCall, map[string]interface{}{})
		if resp.Error == nil || resp.Error.Code != tools.CodeInvalidParams {
			t.Errorf("expected invalid params, got %+v", resp.Error)
		}
	})

	t.Run("InputTooLarge", func(t *testing.T) {
		big := make([]byte, 65)
		for i := range big {
			big[i] = 'e'
		}
		resp := call(t, h, MethodToolsCall, map[string]interface{}{
			"name":      "morse_encode",
			"arguments": map[string]string{"text": string(big)},
		})
		if resp.Error == nil || resp.Error.Code != tools.CodeInvalidParams {
			t.Errorf("expected invalid params, got %+v", resp.Error)
		}
	})

	t.Run("ToolFailureIsContent", func(t *testing.T) {
		resp := call(t, h, MethodToolsCall, map[string]interface{}{"name": "broken"})
		res := toolResult(t, resp)
		if !res.IsError || res.Content[0].Text != "disk on fire" {
			t.Errorf("expected isError content, got %+v", res)
		}
	})
}

func TestCallToolRecoversPanic(t *testing.T) {
	h := newTestHandler(t, &failingTool{panic: true})

	resp := call(t, h, MethodToolsCall, map[string]interface{}{"name": "broken"})
	res := toolResult(t, resp)
	if !res.IsError {
		t.Error("expected panic to surface as a tool error")
	}
}

func TestCallToolTimeout(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&slowTool{})
	h := NewHandler(registry, 20*time.Millisecond)

	resp := call(t, h, MethodToolsCall, map[string]interface{}{"name": "slow"})
	res := toolResult(t, resp)
	if !res.IsError {
		t.Error("expected timeout to surface as a tool error")
	}
}

type slowTool struct{}

func (t *slowTool) Name() string            { return "slow" }
func (t *slowTool) Description() string     { return "waits for cancellation" }
func (t *slowTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *slowTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
