// Package mcp exposes registered skills over the Model Context Protocol and
// imports tools of remote MCP servers as skills.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/skillrt/pkg/runtime"
	"github.com/jllopis/skillrt/pkg/skills"
)

// wrappedInputKey carries non-object skill inputs inside the object MCP requires.
const wrappedInputKey = "input"

// Catalog lists the skills to expose. *skills.Registry implements it.
type Catalog interface {
	List(filter skills.Filter) []skills.Skill
}

// Runner executes a skill. *runtime.Runtime implements it.
type Runner interface {
	Run(ctx context.Context, skillID string, input any, call skills.CallContext) *runtime.Result
}

// Server publishes every enabled skill as an MCP tool backed by the runtime.
type Server struct {
	mcpServer *server.MCPServer
	catalog   Catalog
	runner    Runner
	logger    *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server and publishes the current catalog.
func NewServer(name, version string, catalog Catalog, runner Runner, opts ...ServerOption) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(true)),
		catalog:   catalog,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Sync()
	return s
}

// Sync replaces the published tools with the enabled skills and returns their count.
// Call it after enabling or disabling skills.
func (s *Server) Sync() int {
	tools := s.Tools()
	s.mcpServer.SetTools(tools...)
	s.logger.Info("mcp.tools.sync", slog.Int("tools", len(tools)))
	return len(tools)
}

// Tools builds a tool and handler per enabled skill.
func (s *Server) Tools() []server.ServerTool {
	list := s.catalog.List(skills.Filter{})
	out := make([]server.ServerTool, 0, len(list))
	for _, skill := range list {
		tool, wrapped, err := ToolFor(skill)
		if err != nil {
			s.logger.Warn("mcp.tools.skip",
				slog.String("skill_id", skill.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, server.ServerTool{
			Tool:    tool,
			Handler: s.handler(skill.ID, wrapped),
		})
	}
	return out
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handler(skillID string, wrapped bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		var input any = args
		if wrapped {
			input = args[wrappedInputKey]
		}
		res := s.runner.Run(ctx, skillID, input, skills.CallContext{
			Values: map[string]any{"transport": "mcp"},
		})
		if !res.Success {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", res.Code, res.Error)), nil
		}
		payload, err := json.Marshal(res.Data)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
		}
		result := mcp.NewToolResultText(string(payload))
		if obj, ok := asObject(payload); ok {
			result.StructuredContent = obj
		}
		return result, nil
	}
}

// ToolFor describes skill as an MCP tool. MCP tool inputs are objects, so
// skills with scalar or array inputs take their value under "input"; wrapped
// reports that case.
func ToolFor(skill skills.Skill) (tool mcp.Tool, wrapped bool, err error) {
	schema := skill.Input.Schema()
	var raw json.RawMessage
	if schema != nil && schema.Type == "object" {
		raw, err = json.Marshal(schema)
	} else {
		wrapped = true
		envelope := map[string]any{
			"type":       "object",
			"properties": map[string]any{wrappedInputKey: schema},
		}
		if schema != nil && schema.Type != "" {
			envelope["required"] = []string{wrappedInputKey}
		}
		raw, err = json.Marshal(envelope)
	}
	if err != nil {
		return mcp.Tool{}, false, fmt.Errorf("encode input schema of %q: %w", skill.ID, err)
	}
	description := skill.Description
	if description == "" {
		description = skill.Name
	}
	return mcp.NewToolWithRawSchema(skill.ID, description, raw), wrapped, nil
}

func asObject(payload []byte) (map[string]any, bool) {
	if len(payload) == 0 || payload[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, false
	}
	return obj, true
}
