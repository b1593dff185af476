package mcpserver

import (
	"context"
	"fmt"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/task"
)

func (s *Server) notifyTaskStatus(n mcp.TaskStatusNotification) {
	_ = s.sess.SendNotification(context.Background(), "notifications/tasks/status", n)
}

func (s *Server) handleTasksGet(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params struct {
		TaskID string `json:"taskId"`
	}
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	t, ok := s.taskRuntime.Store().Get(params.TaskID, s.sess.SessionID())
	if !ok {
		return nil, invalidParams(fmt.Errorf("unknown task %q", params.TaskID))
	}
	return mcp.TaskEnvelope{Task: t}, nil
}

func (s *Server) handleTasksResult(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params struct {
		TaskID string `json:"taskId"`
	}
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	result, err := s.taskRuntime.Store().GetResult(params.TaskID, s.sess.SessionID())
	if err != nil {
		return nil, invalidParams(err)
	}
	return result, nil
}

func (s *Server) handleTasksList(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params struct {
		Cursor *string `json:"cursor,omitempty"`
	}
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	tasks, next, err := s.taskRuntime.Store().List(s.sess.SessionID(), params.Cursor, 0)
	if err != nil {
		return nil, err
	}
	return mcp.TaskListResult{Tasks: tasks, NextCursor: next}, nil
}

func (s *Server) handleTasksCancel(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params struct {
		TaskID string `json:"taskId"`
	}
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}
	t, err := s.taskRuntime.Cancel(params.TaskID, s.sess.SessionID())
	if err != nil {
		if err == task.ErrNotFound {
			return nil, invalidParams(fmt.Errorf("unknown task %q", params.TaskID))
		}
		return nil, err
	}
	return mcp.TaskEnvelope{Task: t}, nil
}
