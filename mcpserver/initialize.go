package mcpserver

import (
	"context"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
	"github.com/jrichter-oss/mcpcore/mcp"
)

// handleInitialize implements SPEC_FULL.md §4.6: validate the client's proposed protocol
// version (echoing it if recognized, else advertising the latest), record client capabilities
// and info, and transition the session to Initialized.
func (s *Server) handleInitialize(ctx context.Context, req *jsonrpc.Request) (any, error) {
	var params mcp.InitializeRequest
	if err := unmarshalParams(req.Params, &params); err != nil {
		return nil, invalidParams(err)
	}

	version := params.ProtocolVersion
	if !mcp.IsSupportedProtocolVersion(version) {
		version = mcp.LatestProtocolVersion
	}

	s.sess.TransitionInitializing()
	s.sess.NegotiatedProtocolVersion = version
	s.sess.ClientCapabilities = params.Capabilities
	s.sess.ClientInfo = params.ClientInfo
	s.sess.TransitionInitialized()

	return mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    s.sess.ServerCapabilities,
		ServerInfo:      s.sess.ServerInfo,
	}, nil
}

// handleInitialized observes the client's notifications/initialized, expected after a
// successful initialize response; the session is already Initialized by then (SPEC_FULL.md
// §4.6), so this is purely an acknowledgment point for future bookkeeping (e.g. metrics).
func (s *Server) handleInitialized(ctx context.Context, n *jsonrpc.Notification) {}
