package exampletools

import (
	"context"
	"fmt"
	"time"

	"github.com/jrichter-oss/mcpcore/internal/aids"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/mcpserver"
)

// CountTool counts up from a starting value for a number of increments, sleeping briefly
// between each one. It exists to exercise task augmentation (SPEC_FULL.md §4.4/§4.5): called
// synchronously it simply blocks for the whole duration, but called with params.task it runs
// inside a task.Runtime worker, observes ctx cancellation on tasks/cancel, and lets a caller
// poll tasks/get while it runs. It also reports a notifications/progress update per increment
// when its caller attached a progressToken, exercising SPEC_FULL.md §8 end-to-end scenario 2.
// Grounded on the teacher's countToolCaller.ProcessPhase, which decrements a phase counter one
// increment at a time (mcpsvr/tool_call_count.go).
type CountTool struct{}

func (CountTool) Descriptor() mcp.Tool {
	return mcp.Tool{
		BaseMetadata: mcp.BaseMetadata{Name: "count", Title: aids.Ptr("Count up from an integer")},
		Description:  aids.Ptr("Count from a starting value, adding 1 for the specified number of increments."),
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: &map[string]any{
				"start":      map[string]any{"type": "integer", "description": "The starting value"},
				"increments": map[string]any{"type": "integer", "description": "The number of increments to perform"},
			},
			Required: []string{"start", "increments"},
		},
		OutputSchema: &mcp.JSONSchema{
			Type: "object",
			Properties: &map[string]any{
				"n": map[string]any{"type": "integer", "description": "The final count"},
			},
			Required: []string{"n"},
		},
		Annotations: &mcp.ToolAnnotations{
			Title:           aids.Ptr("Count a specified number of increments"),
			ReadOnlyHint:    aids.Ptr(true),
			DestructiveHint: aids.Ptr(false),
			IdempotentHint:  aids.Ptr(true),
			OpenWorldHint:   aids.Ptr(false),
		},
	}
}

func (CountTool) Call(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
	start, _ := asInt(args["start"])
	increments, ok := asInt(args["increments"])
	if !ok || increments < 0 {
		return mcp.ToolCallResult{}, fmt.Errorf("exampletools: count requires a non-negative integer increments")
	}
	total := float64(increments)
	n := start
	for i := 0; i < increments; i++ {
		select {
		case <-ctx.Done():
			return mcp.ToolCallResult{}, ctx.Err()
		case <-time.After(17 * time.Millisecond):
		}
		n++
		_ = mcpserver.ReportProgress(ctx, float64(i+1), &total)
	}
	return mcp.ToolCallResult{
		Content:           []mcp.ContentBlock{mcp.TextContent{Text: fmt.Sprintf("counted to %d", n)}},
		StructuredContent: map[string]any{"n": n},
	}, nil
}
