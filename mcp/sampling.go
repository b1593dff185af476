package mcp

// SamplingRequest is the params of a sampling/createMessage request: a server asking the
// client's LLM to generate a completion.
type SamplingRequest struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     *string           `json:"systemPrompt,omitempty"`
	// IncludeContext is deprecated; the wire values "thisServer"/"allServers" are accepted on
	// decode and surfaced verbatim, but the server never emits them: Server.Sample clears them
	// before sending.
	IncludeContext *string        `json:"includeContext,omitempty"`
	Temperature    *float64       `json:"temperature,omitempty"`
	MaxTokens      int            `json:"maxTokens"`
	StopSequences  []string       `json:"stopSequences,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SamplingMessage is one turn of a sampling conversation.
type SamplingMessage struct {
	Role    Role         `json:"role"`
	Content ContentBlock `json:"content"`
}

// ModelPreferences steers the client's model selection without naming a model directly.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         *float64    `json:"costPriority,omitempty"`
	SpeedPriority        *float64    `json:"speedPriority,omitempty"`
	IntelligencePriority *float64    `json:"intelligencePriority,omitempty"`
}

// ModelHint is a single, best-effort model name hint.
type ModelHint struct {
	Name *string `json:"name,omitempty"`
}

// SamplingResult is the result of a sampling/createMessage request.
type SamplingResult struct {
	Role       Role         `json:"role"`
	Content    ContentBlock `json:"content"`
	Model      string       `json:"model"`
	StopReason *string      `json:"stopReason,omitempty"`
}

// Finish-reason values observed on the wire. stopSequence and endTurn are both surfaced
// verbatim in StopReason; the core does not collapse them into a unified enum (see
// DESIGN.md's Open Question decisions).
const (
	StopReasonEndTurn      = "endTurn"
	StopReasonStopSequence = "stopSequence"
	StopReasonMaxTokens    = "maxTokens"
)
