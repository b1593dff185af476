package mcp

// PromptList is the result of a prompts/list request.
type PromptList struct {
	Prompts []Prompt `json:"prompts"`
}

// Prompt describes a named, templated prompt the server can fill in.
type Prompt struct {
	BaseMetadata
	Description *string          `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one named argument accepted by a Prompt.
type PromptArgument struct {
	BaseMetadata
	Description *string `json:"description,omitempty"`
	Required    *bool   `json:"required,omitempty"`
}

// PromptRequest is the params of a prompts/get request.
type PromptRequest struct {
	Name      string             `json:"name"`
	Arguments *map[string]string `json:"arguments,omitempty"`
}

// PromptResponse is the result of a prompts/get request.
type PromptResponse struct {
	Description *string         `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptMessage is one turn of a filled-in prompt template.
type PromptMessage struct {
	Role    Role         `json:"role"`
	Content ContentBlock `json:"content"`
}
