// Package mcpserver implements the server-role logic of SPEC_FULL.md: capability negotiation
// and enforcement, the Sample/Elicit/RequestRoots client-facing helpers, and plain-interface
// tool/prompt/resource dispatch (no reflection-based binding, per SPEC_FULL.md's explicit
// out-of-scope boundary on the method-binding reflection layer). Grounded on the teacher's
// server/client role split in HTTPLocalServer/mcpserver.go and the svrcore Policy/filter
// conventions, generalized from HTTP middleware to JSON-RPC request filters.
package mcpserver

import (
	"fmt"

	"github.com/jrichter-oss/mcpcore/mcp"
)

// capabilityError is returned by the guard helpers below; SPEC_FULL.md §7 requires it never
// cross the wire as a JSON-RPC error when the caller (this server) is the one missing the
// capability check -- it is a local precondition failure surfaced to calling Go code.
type capabilityError struct{ capability string }

func (e *capabilityError) Error() string {
	return fmt.Sprintf("mcpserver: peer did not advertise capability %q", e.capability)
}

// requireClientSampling returns an error unless caps declares sampling support.
func requireClientSampling(caps mcp.ClientCapabilities) error {
	if caps.Sampling == nil {
		return &capabilityError{"sampling"}
	}
	return nil
}

func requireClientElicitation(caps mcp.ClientCapabilities, mode string) error {
	if caps.Elicitation == nil {
		return &capabilityError{"elicitation"}
	}
	switch mode {
	case "form":
		if caps.Elicitation.Form == nil || !*caps.Elicitation.Form {
			return &capabilityError{"elicitation.form"}
		}
	case "url":
		if caps.Elicitation.URL == nil || !*caps.Elicitation.URL {
			return &capabilityError{"elicitation.url"}
		}
	}
	return nil
}

func requireClientRoots(caps mcp.ClientCapabilities) error {
	if caps.Roots == nil {
		return &capabilityError{"roots"}
	}
	return nil
}

// requireTaskAugmentable reports whether method may carry params.task, per the receiver's
// advertised TasksCapability.Requests list.
func requireTaskAugmentable(caps mcp.TasksCapability, method string) error {
	for _, m := range caps.Requests {
		if m == method {
			return nil
		}
	}
	return &capabilityError{"tasks." + method}
}
