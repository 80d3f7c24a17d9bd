package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/skillrt/pkg/contract"
	"github.com/jllopis/skillrt/pkg/skills"
)

// ToolCaller abstracts MCP tool execution. *Client implements it.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolLister abstracts MCP tool discovery. *Client implements it.
type ToolLister interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// RemoteClient discovers and calls remote tools.
type RemoteClient interface {
	ToolCaller
	ToolLister
}

// ImportTools turns every tool of a remote server into a skill named
// "<prefix>.<tool>".
func ImportTools(ctx context.Context, remote RemoteClient, prefix string) ([]skills.Skill, error) {
	tools, err := remote.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools of %s: %w", prefix, err)
	}
	out := make([]skills.Skill, 0, len(tools))
	for _, tool := range tools {
		s, err := RemoteSkill(prefix, tool, remote)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// RemoteSkill builds a skill that forwards its input to a remote MCP tool.
// Text results holding JSON are decoded.
// Input must be an object (or a JSON object string); a bare string is passed
// as {"input": value}. Required fields of the tool schema are checked before
// the call.
func RemoteSkill(prefix string, tool mcp.Tool, caller ToolCaller) (skills.Skill, error) {
	if tool.Name == "" {
		return skills.Skill{}, fmt.Errorf("mcp tool name is required")
	}
	if caller == nil {
		return skills.Skill{}, fmt.Errorf("tool caller is required")
	}
	schema, required, err := toolSchema(tool)
	if err != nil {
		return skills.Skill{}, err
	}
	id := tool.Name
	if prefix != "" {
		id = prefix + "." + tool.Name
	}

	input := contract.Func(schema, func(value any) (map[string]any, error) {
		args, err := normalizeToolArgs(value)
		if err != nil {
			return nil, err
		}
		var v contract.Violations
		for _, key := range required {
			if _, ok := args[key]; !ok {
				v.Addf(key, "required field missing")
			}
		}
		return args, v.Err()
	})
	output := contract.Any()

	return skills.Typed(skills.Skill{
		ID:          id,
		Name:        tool.Name,
		Description: tool.Description,
		Category:    skills.CategoryCustomisation,
	}, input, output, func(ctx context.Context, args map[string]any, _ skills.CallContext) (any, error) {
		result, err := caller.CallTool(ctx, tool.Name, args)
		if err != nil {
			return nil, err
		}
		return toolResultToOutput(result)
	}), nil
}

func toolSchema(tool mcp.Tool) (*jsonschema.Schema, []string, error) {
	raw := tool.RawInputSchema
	if len(raw) == 0 {
		encoded, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, nil, fmt.Errorf("encode schema of %q: %w", tool.Name, err)
		}
		raw = encoded
	}
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, schema); err != nil {
		return nil, nil, fmt.Errorf("decode schema of %q: %w", tool.Name, err)
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema, schema.Required, nil
}

func normalizeToolArgs(input any) (map[string]any, error) {
	switch value := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return value, nil
	case json.RawMessage:
		return decodeArgs(value)
	case []byte:
		return decodeArgs(value)
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return map[string]any{}, nil
		}
		if strings.HasPrefix(trimmed, "{") {
			if decoded, err := decodeArgs([]byte(trimmed)); err == nil {
				return decoded, nil
			}
		}
		return map[string]any{wrappedInputKey: value}, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("expected an object, got %T", input)
		}
		return decodeArgs(encoded)
	}
}

func decodeArgs(raw []byte) (map[string]any, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return decoded, nil
}

func toolResultToOutput(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, fmt.Errorf("mcp tool result is nil")
	}
	if result.IsError {
		return nil, fmt.Errorf("mcp tool returned error: %s", extractTextContent(result.Content))
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	text := extractTextContent(result.Content)
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded, nil
	}
	return text, nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
