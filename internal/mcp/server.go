// Package mcp implements the Model Context Protocol server that exposes pim
// operations to LLM clients. Tools come from the extensions; this package
// adds the stdio transport and the page and card resources.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/version"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New builds the server with every tool bound to ec.
func New(ec extension.Context, tools []extension.MCPTool) *server.MCPServer {
	s := server.NewMCPServer(
		"pim",
		version.Short(),
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	registerResources(s, ec)
	for _, t := range tools {
		s.AddTool(t.Tool, bind(ec, t))
	}
	return s
}

// bind adapts an extension handler to the server's handler signature and
// logs a diagnostic line for failed calls.
func bind(ec extension.Context, t extension.MCPTool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := t.Handler(ctx, ec, req)
		if err != nil {
			slog.Warn("mcp tool failed", "tool", t.Tool.Name, "error", err)
		} else if res != nil && res.IsError {
			slog.Debug("mcp tool returned error", "tool", t.Tool.Name)
		}
		return res, err
	}
}

// Serve runs the server over stdio until the client disconnects. stdout
// carries JSON-RPC, so diagnostics go to the slog default logger.
func Serve(ctx context.Context, ec extension.Context, tools []extension.MCPTool) error {
	s := New(ec, tools)

	slog.Info("pim MCP server ready", "version", version.Short(), "transport", "stdio", "tools", len(tools))
	log.Event("core:serve", "start").Detail("tools", len(tools)).Write(nil)

	err := server.ServeStdio(s)
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		err = nil
	}
	slog.Info("pim MCP server stopped")
	log.Event("core:serve", "stop").Write(err)
	return err
}
