package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jrichter-oss/mcpcore/mcp"
)

func TestRequireClientSampling(t *testing.T) {
	assert.Error(t, requireClientSampling(mcp.ClientCapabilities{}))
	assert.NoError(t, requireClientSampling(mcp.ClientCapabilities{Sampling: &mcp.SamplingCapability{}}))
}

func TestRequireClientElicitationChecksMode(t *testing.T) {
	trueVal := true
	caps := mcp.ClientCapabilities{Elicitation: &mcp.ElicitationCapability{Form: &trueVal}}
	assert.NoError(t, requireClientElicitation(caps, "form"))
	assert.Error(t, requireClientElicitation(caps, "url"))
	assert.Error(t, requireClientElicitation(mcp.ClientCapabilities{}, "form"))
}

func TestRequireTaskAugmentable(t *testing.T) {
	caps := mcp.TasksCapability{Requests: []string{mcp.TaskMethodToolsCall}}
	assert.NoError(t, requireTaskAugmentable(caps, mcp.TaskMethodToolsCall))
	assert.Error(t, requireTaskAugmentable(caps, mcp.TaskMethodElicitationCreate))
}
