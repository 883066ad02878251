package mcp

import (
	"encoding/json"
	"errors"

	"github.com/sourcegraph/jsonrpc2"
)

// JSON-RPC types

// JSONRPCRequest keeps the id as raw JSON so it is echoed back exactly,
// whether it was a string, a number, null or absent.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON rejects requests without a string method
func (r *JSONRPCRequest) UnmarshalJSON(data []byte) error {
	type plain JSONRPCRequest
	var decoded struct {
		plain
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.Method == nil {
		return errors.New("missing field `method`")
	}
	*r = JSONRPCRequest(decoded.plain)
	r.Method = *decoded.Method
	return nil
}

// JSONRPCResponse carries either Result or Error, never both. A nil ID is
// encoded as null.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
}

// MCP Protocol types

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

type ServerCapabilities struct {
	Tools ToolCapabilities `json:"tools"`
}

// ToolCapabilities is serialized as an empty object
type ToolCapabilities struct{}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

type ToolInputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
