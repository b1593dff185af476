package exampletools

import (
	"context"
	"fmt"

	"github.com/jrichter-oss/mcpcore/internal/aids"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/mcpserver"
)

// Elicitor is the subset of *mcpserver.Server a binding needs to elicit input from the client
// mid-call; narrowed to an interface so tools depend on a capability, not the concrete server.
type Elicitor interface {
	ElicitTyped(ctx context.Context, message string, fields []mcpserver.FieldDescriptor) (map[string]any, error)
}

// WelcomeTool elicits the caller's name and returns a greeting, exercising the
// elicitation/create round trip (SPEC_FULL.md §4.7). Grounded on the teacher's
// welcomeToolInfo.Create, which set an ElicitationRequest and a
// StatusAwaitingElicitationResult before the toolcall resource could complete
// (mcpsvr/tool_call_welcome.go); here the wait is inline since Call already runs on its own
// goroutine (synchronously, or inside a task worker when augmented).
type WelcomeTool struct {
	Elicitor Elicitor
}

func (WelcomeTool) Descriptor() mcp.Tool {
	return mcp.Tool{
		BaseMetadata: mcp.BaseMetadata{Name: "welcome", Title: aids.Ptr("Send a welcome message")},
		Description:  aids.Ptr("Creates a welcome message for a user, eliciting the user's name."),
		InputSchema:  mcp.JSONSchema{Type: "object"},
		OutputSchema: &mcp.JSONSchema{
			Type: "object",
			Properties: &map[string]any{
				"message": map[string]any{"type": "string", "description": "The welcome message"},
			},
			Required: []string{"message"},
		},
	}
}

func (t WelcomeTool) Call(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
	fields := []mcpserver.FieldDescriptor{
		{Name: "name", Title: aids.Ptr("Name"), Kind: mcpserver.PrimitiveString, Required: true},
	}
	content, err := t.Elicitor.ElicitTyped(ctx, "Need a name for the welcome message.", fields)
	if err != nil {
		return mcp.ToolCallResult{}, err
	}
	name, _ := content["name"].(string)
	if name == "" {
		return mcp.ToolCallResult{
			Content: []mcp.ContentBlock{mcp.TextContent{Text: "No name provided; welcome message skipped."}},
			IsError: true,
		}, nil
	}
	message := fmt.Sprintf("Welcome, %s!", name)
	return mcp.ToolCallResult{
		Content:           []mcp.ContentBlock{mcp.TextContent{Text: message}},
		StructuredContent: map[string]any{"message": message},
	}, nil
}
