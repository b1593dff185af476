package mcp

// ContentBlock is the tagged union carried in prompt messages, sampling messages, and tool
// call results. Concrete variants are Text/Image/Audio/ResourceLink/EmbeddedResource plus the
// task-oriented ToolUse/ToolResult pair added for the durable-task subsystem (a server emits
// ToolUse blocks to describe a sampling model's own tool invocations, and ToolResult blocks
// to carry their outcomes back, independent of the MCP tools/call RPC).
type ContentBlock interface {
	isContentBlock()
	// Kind returns the block's wire discriminator ("type" field).
	Kind() string
}

// TextContent is a plain-text content block.
type TextContent struct {
	Text        string       `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Meta        Meta         `json:"_meta,omitempty"`
}

func (TextContent) isContentBlock() {}
func (TextContent) Kind() string    { return "text" }

// ImageContent is a base64-encoded image content block.
type ImageContent struct {
	Data        string       `json:"data"`
	MimeType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Meta        Meta         `json:"_meta,omitempty"`
}

func (ImageContent) isContentBlock() {}
func (ImageContent) Kind() string    { return "image" }

// AudioContent is a base64-encoded audio content block.
type AudioContent struct {
	Data        string       `json:"data"`
	MimeType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Meta        Meta         `json:"_meta,omitempty"`
}

func (AudioContent) isContentBlock() {}
func (AudioContent) Kind() string    { return "audio" }

// ResourceLinkContent points at a resource by URI without inlining its contents.
type ResourceLinkContent struct {
	Resource
}

func (ResourceLinkContent) isContentBlock() {}
func (ResourceLinkContent) Kind() string    { return "resource_link" }

// EmbeddedResourceContent inlines a resource's contents directly in a content block.
type EmbeddedResourceContent struct {
	Resource    ResourceContentsUnion `json:"resource"`
	Annotations *Annotations          `json:"annotations,omitempty"`
	Meta        Meta                  `json:"_meta,omitempty"`
}

func (EmbeddedResourceContent) isContentBlock() {}
func (EmbeddedResourceContent) Kind() string    { return "resource" }

// ResourceContentsUnion holds either a TextResourceContents or a BlobResourceContents,
// discriminated on decode by the presence of "text" vs "blob".
type ResourceContentsUnion struct {
	Text *TextResourceContents
	Blob *BlobResourceContents
}

// ToolUseContent describes a tool invocation a sampling model requested mid-generation.
// It travels inside sampling/createMessage results and assistant-role prompt messages;
// it is distinct from (and has no bearing on) the server-side tools/call RPC.
type ToolUseContent struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
	Meta  Meta           `json:"_meta,omitempty"`
}

func (ToolUseContent) isContentBlock() {}
func (ToolUseContent) Kind() string    { return "tool_use" }

// ToolResultContent carries the outcome of a ToolUseContent invocation back to the model.
type ToolResultContent struct {
	ToolUseID string         `json:"toolUseId"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"isError,omitempty"`
	Meta      Meta           `json:"_meta,omitempty"`
}

func (ToolResultContent) isContentBlock() {}
func (ToolResultContent) Kind() string    { return "tool_result" }
