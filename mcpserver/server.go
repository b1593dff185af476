package mcpserver

import (
	"context"
	"fmt"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/mcperrors"
	"github.com/jrichter-oss/mcpcore/session"
	"github.com/jrichter-oss/mcpcore/task"
)

// ToolBinding is a plain-interface tool implementation; bindings are registered explicitly by
// the embedding program (see exampletools), never discovered by reflection, per SPEC_FULL.md's
// explicit exclusion of the method-binding reflection layer.
type ToolBinding interface {
	Descriptor() mcp.Tool
	Call(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error)
}

// PromptBinding is a plain-interface prompt implementation.
type PromptBinding interface {
	Descriptor() mcp.Prompt
	Render(ctx context.Context, args map[string]string) (mcp.PromptResponse, error)
}

// ResourceBinding is a plain-interface resource implementation.
type ResourceBinding interface {
	Descriptor() mcp.Resource
	Read(ctx context.Context) (mcp.ResourceContentsUnion, error)
}

// Server orchestrates capability negotiation, tool/prompt/resource dispatch, and the
// client-facing Sample/Elicit/RequestRoots helpers for one Session.
type Server struct {
	sess *session.Session

	tools     map[string]ToolBinding
	prompts   map[string]PromptBinding
	resources map[string]ResourceBinding

	taskRuntime *task.Runtime
}

// New wires request handlers for every registered capability onto sess.
func New(sess *session.Session, taskRuntime *task.Runtime) *Server {
	s := &Server{sess: sess, tools: map[string]ToolBinding{}, prompts: map[string]PromptBinding{}, resources: map[string]ResourceBinding{}, taskRuntime: taskRuntime}
	sess.RegisterRequestHandler("initialize", s.handleInitialize)
	sess.RegisterRequestHandler("ping", s.handlePing)
	sess.RegisterRequestHandler("tools/list", s.handleToolsList)
	sess.RegisterRequestHandler("tools/call", s.handleToolsCall)
	sess.RegisterRequestHandler("prompts/list", s.handlePromptsList)
	sess.RegisterRequestHandler("prompts/get", s.handlePromptsGet)
	sess.RegisterRequestHandler("resources/list", s.handleResourcesList)
	sess.RegisterRequestHandler("resources/read", s.handleResourcesRead)
	sess.RegisterRequestHandler("tasks/get", s.handleTasksGet)
	sess.RegisterRequestHandler("tasks/result", s.handleTasksResult)
	sess.RegisterRequestHandler("tasks/list", s.handleTasksList)
	sess.RegisterRequestHandler("tasks/cancel", s.handleTasksCancel)
	sess.RegisterNotificationHandler("notifications/initialized", s.handleInitialized)
	return s
}

// RegisterTool makes t callable via tools/list and tools/call.
func (s *Server) RegisterTool(t ToolBinding) { s.tools[t.Descriptor().Name] = t }

// RegisterPrompt makes p retrievable via prompts/list and prompts/get.
func (s *Server) RegisterPrompt(p PromptBinding) { s.prompts[p.Descriptor().Name] = p }

// RegisterResource makes r listable and readable via resources/list and resources/read.
func (s *Server) RegisterResource(r ResourceBinding) { s.resources[r.Descriptor().URI] = r }

func (s *Server) handlePing(ctx context.Context, req *jsonrpc.Request) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleToolsList(ctx context.Context, req *jsonrpc.Request) (any, error) {
	out := mcp.ListToolsResult{}
	for _, t := range s.tools {
		out.Tools = append(out.Tools, t.Descriptor())
	}
	return out, nil
}

func (s *Server) handleToolsCall(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params mcp.ToolCallRequest
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	t, ok := s.tools[params.Name]
	if !ok {
		return nil, invalidParams(fmt.Errorf("unknown tool %q", params.Name))
	}

	taskMeta, augmented, err := decodeTaskMetadata(req.Params)
	if err != nil {
		return nil, invalidParams(err)
	}

	callCtx := ctx
	if params.Meta != nil && params.Meta.ProgressToken != nil {
		token := params.Meta.ProgressToken
		callCtx = withProgressReporter(ctx, func(rctx context.Context, progress float64, total *float64, message *string) error {
			return s.sess.SendNotification(rctx, "notifications/progress", mcp.ProgressNotificationParams{
				ProgressToken: token,
				Progress:      progress,
				Total:         total,
				Message:       message,
			})
		})
	}

	if augmented {
		if s.sess.ServerCapabilities.Tasks == nil {
			return nil, mcperrors.InvalidParams("peer requested task augmentation but server did not advertise capability %q", "tasks."+mcp.TaskMethodToolsCall)
		}
		if err := requireTaskAugmentable(*s.sess.ServerCapabilities.Tasks, mcp.TaskMethodToolsCall); err != nil {
			return nil, mcperrors.InvalidParams("%s", err.Error())
		}
		reporter, hasReporter := progressReporterFrom(callCtx)
		return s.taskRuntime.Start(s.sess.SessionID(), taskMeta.ttlDuration(), func(taskCtx context.Context) (any, error) {
			if hasReporter {
				taskCtx = withProgressReporter(taskCtx, reporter)
			}
			return t.Call(taskCtx, params.Arguments)
		}, s.notifyTaskStatus)
	}

	result, err := t.Call(callCtx, params.Arguments)
	if err != nil && ctx.Err() == nil {
		// A tool's own failure is reported inside the result, not as a JSON-RPC error.
		return mcp.ToolCallResult{Content: []mcp.ContentBlock{mcp.TextContent{Text: err.Error()}}, IsError: true}, nil
	}
	return result, err
}

func (s *Server) handlePromptsList(ctx context.Context, req *jsonrpc.Request) (any, error) {
	out := mcp.PromptList{}
	for _, p := range s.prompts {
		out.Prompts = append(out.Prompts, p.Descriptor())
	}
	return out, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params mcp.PromptRequest
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	p, ok := s.prompts[params.Name]
	if !ok {
		return nil, invalidParams(fmt.Errorf("unknown prompt %q", params.Name))
	}
	var args map[string]string
	if params.Arguments != nil {
		args = *params.Arguments
	}
	return p.Render(ctx, args)
}

func (s *Server) handleResourcesList(ctx context.Context, req *jsonrpc.Request) (any, error) {
	out := mcp.ListResources{}
	for _, r := range s.resources {
		out.Resources = append(out.Resources, r.Descriptor())
	}
	return out, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	r, ok := s.resources[params.URI]
	if !ok {
		return nil, invalidParams(fmt.Errorf("unknown resource %q", params.URI))
	}
	contents, err := r.Read(ctx)
	if err != nil {
		return nil, err
	}
	return struct {
		Contents []mcp.ResourceContentsUnion `json:"contents"`
	}{[]mcp.ResourceContentsUnion{contents}}, nil
}
