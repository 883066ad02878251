package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/iafnetworkspa/ipinfo-mcp/internal/ipinfo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/jsonrpc2"
	"golang.org/x/text/message"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "ip-info-server"
)

// Config holds MCP server configuration
type Config struct {
	Version  string
	Language string
	IPInfo   ipinfo.Config
}

// Fetcher looks up the public IP information of the running machine
type Fetcher interface {
	Fetch(ctx context.Context) (*ipinfo.Info, error)
}

type methodHandler func(ctx context.Context, request *JSONRPCRequest) *JSONRPCResponse

// Server represents the MCP server
type Server struct {
	fetcher Fetcher
	printer *message.Printer
	version string
	methods map[string]methodHandler
	tools   map[string]toolHandler
	reader  *bufio.Reader
	writer  *bufio.Writer
	log     zerolog.Logger
}

// NewServer creates a new MCP server reading from stdin and writing to stdout
func NewServer(cfg Config) *Server {
	return NewServerWithFetcher(cfg, ipinfo.NewClient(cfg.IPInfo))
}

// NewServerWithFetcher creates a server backed by the given fetcher
func NewServerWithFetcher(cfg Config, fetcher Fetcher) *Server {
	s := &Server{
		fetcher: fetcher,
		printer: newPrinter(cfg.Language),
		version: cfg.Version,
		log:     log.With().Str("component", "mcp_server").Logger(),
	}
	s.methods = map[string]methodHandler{
		"initialize": s.handleInitialize,
		"tools/list": s.handleToolsList,
		"tools/call": s.handleToolCall,
	}
	s.tools = map[string]toolHandler{
		toolGetIPInfo: s.callGetIPInfo,
	}
	s.SetIO(os.Stdin, os.Stdout)
	return s
}

// SetIO replaces the protocol streams
func (s *Server) SetIO(r io.Reader, w io.Writer) {
	s.reader = bufio.NewReader(r)
	s.writer = bufio.NewWriter(w)
}

type readResult struct {
	line []byte
	err  error
}

// Run reads one request per line until the input is closed or ctx is
// cancelled. Each non-blank line yields exactly one response line, written
// and flushed before the next line is handled. Cancellation is a clean stop.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("MCP server started, waiting for requests")
	defer s.log.Info().Msg("MCP server stopped")

	if ctx.Err() != nil {
		return nil
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan readResult)
	go s.readLines(readCtx, lines)

	for {
		var next readResult
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Shutdown requested")
			return nil
		case next = <-lines:
		}

		if next.err != nil && next.err != io.EOF {
			return fmt.Errorf("failed to read request: %w", next.err)
		}

		if trimmed := bytes.TrimSpace(next.line); len(trimmed) > 0 {
			s.log.Debug().RawJSON("request", jsonOrString(trimmed)).Msg("Received request")
			if err := s.write(s.handleLine(ctx, trimmed)); err != nil {
				return err
			}
		}

		if next.err == io.EOF {
			return nil
		}
	}
}

// readLines feeds lines to Run so a blocked read cannot hold off cancellation.
// It stops after the first read error or once ctx is done.
func (s *Server) readLines(ctx context.Context, lines chan<- readResult) {
	for {
		line, err := s.reader.ReadBytes('\n')
		select {
		case lines <- readResult{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) *JSONRPCResponse {
	var request JSONRPCRequest
	if err := json.Unmarshal(line, &request); err != nil {
		s.log.Warn().Err(err).Msg("Failed to parse request")
		return newErrorResponse(nil, jsonrpc2.CodeParseError, "Parse error", err)
	}
	return s.handleRequest(ctx, &request)
}

// handleRequest routes a request by method name
func (s *Server) handleRequest(ctx context.Context, request *JSONRPCRequest) *JSONRPCResponse {
	handler, ok := s.methods[request.Method]
	if !ok {
		return newErrorResponse(request.ID, jsonrpc2.CodeMethodNotFound, "Method not found", nil)
	}
	return handler(ctx, request)
}

func (s *Server) write(response *JSONRPCResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	s.log.Debug().RawJSON("response", data).Msg("Sending response")

	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}

// handleInitialize handles the initialize request. Client parameters are
// accepted without validation.
func (s *Server) handleInitialize(_ context.Context, request *JSONRPCRequest) *JSONRPCResponse {
	return newResponse(request.ID, InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapabilities{
			Tools: ToolCapabilities{},
		},
		ServerInfo: ServerInfo{
			Name:    serverName,
			Version: s.version,
		},
	})
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(_ context.Context, request *JSONRPCRequest) *JSONRPCResponse {
	return newResponse(request.ID, ToolsListResult{
		Tools: s.toolDefinitions(),
	})
}

// handleToolCall executes a tool call
func (s *Server) handleToolCall(ctx context.Context, request *JSONRPCRequest) *JSONRPCResponse {
	if isAbsent(request.Params) {
		return newErrorResponse(request.ID, jsonrpc2.CodeInvalidParams, "Missing params", nil)
	}

	var params ToolCallParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return newErrorResponse(request.ID, jsonrpc2.CodeInvalidParams, "Invalid params", err)
	}
	if params.Name == "" {
		return newErrorResponse(request.ID, jsonrpc2.CodeInvalidParams, "Invalid params", errors.New("missing field `name`"))
	}

	tool, ok := s.tools[params.Name]
	if !ok {
		return newErrorResponse(request.ID, jsonrpc2.CodeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	s.log.Info().Str("tool", params.Name).Msg("Calling tool")
	return newResponse(request.ID, tool(ctx, params.Arguments))
}

func newResponse(id json.RawMessage, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// newErrorResponse builds an error response; a non-nil cause is reported in
// data as {"details": "..."}.
func newErrorResponse(id json.RawMessage, code int64, message string, cause error) *JSONRPCResponse {
	rpcErr := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if cause != nil {
		rpcErr.SetError(map[string]string{"details": cause.Error()})
	}
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// jsonOrString lets malformed input still be logged as a JSON string
func jsonOrString(b []byte) []byte {
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
