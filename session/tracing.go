package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
)

var tracer = otel.Tracer("github.com/jrichter-oss/mcpcore/session")

// NewTracingFilter returns a RequestFilter that starts one span per inbound request, named after
// the JSON-RPC method, grounded on haasonsaas-nexus's tracing_plugin.go OnEvent/span-per-unit
// pattern but adapted from event callbacks to a request/response middleware shape. The span
// brackets the handler and every filter registered before this one; filters registered after it
// wrap around it (RegisterMessageFilter's last-registered-is-outermost rule) and run outside the span.
func NewTracingFilter(sessionID string) RequestFilter {
	return func(next RequestHandler) RequestHandler {
		return func(ctx context.Context, req *jsonrpc.Request) (any, error) {
			ctx, span := tracer.Start(ctx, req.Method, trace.WithAttributes(
				attribute.String("mcp.session_id", sessionID),
				attribute.String("rpc.system", "jsonrpc2"),
				attribute.String("rpc.method", req.Method),
			))
			defer span.End()

			result, err := next(ctx, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}
