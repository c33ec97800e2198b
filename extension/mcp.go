// mcp.go defines MCP tool registration types and the argument helpers that
// extension handlers share.
//
// Argument extraction is permissive: a missing or mistyped optional
// argument yields the default rather than an error.

package extension

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCPTool pairs an MCP tool definition with its handler.
type MCPTool struct {
	Tool    mcp.Tool
	Handler MCPHandler
}

// MCPHandler processes MCP tool requests.
type MCPHandler func(ctx context.Context, extCtx Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

func args(req mcp.CallToolRequest) map[string]any {
	m, _ := req.Params.Arguments.(map[string]any)
	return m
}

// String returns the named string argument or def.
func String(req mcp.CallToolRequest, name, def string) string {
	if v, ok := args(req)[name].(string); ok {
		return v
	}
	return def
}

// OptString returns the named string argument, or nil when it is absent.
func OptString(req mcp.CallToolRequest, name string) *string {
	if v, ok := args(req)[name].(string); ok {
		return &v
	}
	return nil
}

// Bool returns the named boolean argument or def.
func Bool(req mcp.CallToolRequest, name string, def bool) bool {
	if v, ok := args(req)[name].(bool); ok {
		return v
	}
	return def
}

// OptBool returns the named boolean argument, or nil when it is absent.
func OptBool(req mcp.CallToolRequest, name string) *bool {
	if v, ok := args(req)[name].(bool); ok {
		return &v
	}
	return nil
}

// Int returns the named numeric argument or def. JSON numbers arrive as
// float64.
func Int(req mcp.CallToolRequest, name string, def int) int {
	if v, ok := args(req)[name].(float64); ok {
		return int(v)
	}
	return def
}

// OptInt64 returns the named numeric argument, or nil when it is absent.
func OptInt64(req mcp.CallToolRequest, name string) *int64 {
	if v, ok := args(req)[name].(float64); ok {
		n := int64(v)
		return &n
	}
	return nil
}

// Strings returns the named string array argument. Non-string elements are
// skipped; nil means absent.
func Strings(req mcp.CallToolRequest, name string) []string {
	raw, ok := args(req)[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// JSONResult marshals v as the text body of a tool result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
