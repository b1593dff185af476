package mcp

// ListResources is the result of a resources/list request.
type ListResources struct {
	Resources []Resource `json:"resources"`
}

// Resource is a single addressable resource a server exposes.
type Resource struct {
	BaseMetadata
	URI         string       `json:"uri"`
	Description *string      `json:"description,omitempty"`
	MimeType    *string      `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Size        *int64       `json:"size,omitempty"`
	Meta        Meta         `json:"_meta,omitempty"`
}

// ListResourceTemplates is the result of a resources/templates/list request.
type ListResourceTemplates struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ResourceTemplate describes a URI template from which concrete resources can be derived.
type ResourceTemplate struct {
	BaseMetadata
	URITemplate string       `json:"uriTemplate"`
	Description *string      `json:"description,omitempty"`
	MimeType    *string      `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Meta        Meta         `json:"_meta,omitempty"`
}

// ResourceContents is the shared header of TextResourceContents and BlobResourceContents.
type ResourceContents struct {
	URI      string  `json:"uri"`
	MimeType *string `json:"mimeType,omitempty"`
	Meta     Meta    `json:"_meta,omitempty"`
}

// TextResourceContents is a resources/read result entry carrying inline text.
type TextResourceContents struct {
	ResourceContents
	Text string `json:"text"`
}

// BlobResourceContents is a resources/read result entry carrying base64-encoded binary data.
type BlobResourceContents struct {
	ResourceContents
	Blob string `json:"blob"`
}
