// Package exampletools provides plain mcpserver.ToolBinding implementations used by
// cmd/mcpserver. Grounded on the teacher's per-tool Tool()/Create()
// pair (mcpsvr/tool_call_add.go, tool_call_count.go, tool_call_welcome.go), adapted from the
// teacher's toolcall-resource state machine to the plain synchronous/task-augmented split of
// SPEC_FULL.md §4.4: a binding either returns its result directly, or mcpserver.Server wraps
// the call in a task.Runtime worker when the caller opts in via params.task.
package exampletools

import (
	"context"
	"fmt"

	"github.com/jrichter-oss/mcpcore/internal/aids"
	"github.com/jrichter-oss/mcpcore/mcp"
)


// AddTool adds two integers. It is a trivial, fast, synchronous tool -- never task-augmented
// in practice, though nothing stops a caller from requesting task augmentation for it.
type AddTool struct{}

func (AddTool) Descriptor() mcp.Tool {
	return mcp.Tool{
		BaseMetadata: mcp.BaseMetadata{Name: "add", Title: aids.Ptr("Add two numbers")},
		Description:  aids.Ptr("Add two integers and return their sum."),
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: &map[string]any{
				"x": map[string]any{"type": "integer", "description": "The first number"},
				"y": map[string]any{"type": "integer", "description": "The second number"},
			},
			Required: []string{"x", "y"},
		},
		OutputSchema: &mcp.JSONSchema{
			Type: "object",
			Properties: &map[string]any{
				"sum": map[string]any{"type": "integer", "description": "x + y"},
			},
			Required: []string{"sum"},
		},
		Annotations: &mcp.ToolAnnotations{
			Title:           aids.Ptr("Add two numbers"),
			ReadOnlyHint:    aids.Ptr(true),
			DestructiveHint: aids.Ptr(false),
			IdempotentHint:  aids.Ptr(true),
			OpenWorldHint:   aids.Ptr(false),
		},
	}
}

func (AddTool) Call(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
	x, okX := asInt(args["x"])
	y, okY := asInt(args["y"])
	if !okX || !okY {
		return mcp.ToolCallResult{}, fmt.Errorf("exampletools: add requires integer x and y")
	}
	sum := x + y
	return mcp.ToolCallResult{
		Content:           []mcp.ContentBlock{mcp.TextContent{Text: fmt.Sprintf("%d + %d = %d", x, y, sum)}},
		StructuredContent: map[string]any{"sum": sum},
	}, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
