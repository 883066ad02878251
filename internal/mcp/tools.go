package mcp

import (
	"context"
	"encoding/json"
)

const toolGetIPInfo = "get_ip_info"

type toolHandler func(ctx context.Context, args json.RawMessage) ToolCallResult

func (s *Server) toolDefinitions() []Tool {
	return []Tool{
		{
			Name:        toolGetIPInfo,
			Description: s.printer.Sprintf(msgToolDescription),
			InputSchema: ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{},
				Required:   []string{},
			},
		},
	}
}

// callGetIPInfo reports fetch failures inside the tool result with isError
// set, leaving the JSON-RPC envelope a success.
func (s *Server) callGetIPInfo(ctx context.Context, _ json.RawMessage) ToolCallResult {
	info, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("tool", toolGetIPInfo).Msg("Tool execution failed")
		return ToolCallResult{
			Content: []Content{textContent(s.printer.Sprintf(msgFetchFailed, err.Error()))},
			IsError: true,
		}
	}

	return ToolCallResult{
		Content: []Content{textContent(info.String())},
	}
}

func textContent(text string) Content {
	return Content{
		Type: "text",
		Text: text,
	}
}
