package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/pkg/protocol"
)

// maxLineBytes bounds a single newline-delimited message on the stream.
const maxLineBytes = 16 << 20

type Server struct {
	registry *tools.Registry
	handler  *Handler
}

func NewServer(registry *tools.Registry, callTimeout time.Duration) *Server {
	return &Server{
		registry: registry,
		handler:  NewHandler(registry, callTimeout),
	}
}

func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	return s.handler.Handle(ctx, req)
}

func (s *Server) ProcessStream(ctx context.Context, reader io.Reader, writer io.Writer) error {
	return ServeStream(ctx, s, reader, writer)
}

// RequestHandler answers one request. A nil response means nothing is
// written back.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req *Request) *Response
}

// ServeStream serves newline-delimited JSON-RPC messages from reader until
// EOF or ctx is cancelled. Requests are handled in order.
func ServeStream(ctx context.Context, h RequestHandler, reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	encoder := json.NewEncoder(protocol.NewFlushWriter(writer))

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := encoder.Encode(protocol.NewErrorResponse(nil, tools.CodeParseError, "Parse error")); err != nil {
				return err
			}
			continue
		}

		var resp *Response
		if req.JSONRPC != protocol.Version || req.Method == "" {
			resp = protocol.NewErrorResponse(req.ID, tools.CodeInvalidRequest, "Invalid request")
		} else {
			resp = h.HandleRequest(ctx, &req)
		}
		if resp == nil {
			continue
		}

		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) Registry() *tools.Registry {
	return s.registry
}
