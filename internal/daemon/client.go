package daemon

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/pkg/protocol"
)

// Client talks to a running daemon over its socket. It satisfies
// mcp.RequestHandler, so a stdio bridge is ServeStream over a Client.
type Client struct {
	conn *jsonrpc2.Conn
}

func Dial(ctx context.Context, socketPath string) (*Client, error) {
	netConn, err := dialSocket(ctx, socketPath)
	if err != nil {
		return nil, err
	}

	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(refuseRequests))

	return &Client{conn: conn}, nil
}

// The daemon never calls back into the client.
func refuseRequests(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client accepts no requests"}
}

func paramsArg(params json.RawMessage) interface{} {
	if len(params) == 0 {
		return nil
	}
	return params
}

func (c *Client) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.conn.Call(ctx, method, paramsArg(params), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Notify(ctx context.Context, method string, params json.RawMessage) error {
	return c.conn.Notify(ctx, method, paramsArg(params))
}

// HandleRequest forwards req to the daemon and translates the outcome back
// into a response carrying the caller's ID.
func (c *Client) HandleRequest(ctx context.Context, req *protocol.JSONRPCRequest) *protocol.JSONRPCResponse {
	if req.IsNotification() {
		if err := c.Notify(ctx, req.Method, req.Params); err != nil {
			log.Debug("failed to forward notification", "method", req.Method, "error", err)
		}
		return nil
	}

	result, err := c.Call(ctx, req.Method, req.Params)
	if err != nil {
		var rpcErr *jsonrpc2.Error
		if errors.As(err, &rpcErr) {
			return protocol.NewErrorResponse(req.ID, int(rpcErr.Code), rpcErr.Message)
		}
		return protocol.NewErrorResponse(req.ID, tools.CodeInternalError, err.Error())
	}

	return &protocol.JSONRPCResponse{JSONRPC: protocol.Version, ID: req.ID, Result: result}
}

// DisconnectNotify is closed once the daemon hangs up.
func (c *Client) DisconnectNotify() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		return err
	}
	return nil
}
