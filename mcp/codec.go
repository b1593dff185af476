// codec.go implements the auxiliary codecs named in SPEC_FULL.md: polymorphic decode for the
// ContentBlock and PrimitiveSchema tagged unions, the ResourceContentsUnion text/blob split,
// and a single-or-list generic converter for wire fields that accept either shape. The pattern
// is adapted from the teacher's ElicitationRequest.UnmarshalJSON (a hand-rolled map[string]any
// switch over a "type" discriminator); here it is rebuilt on jsontext/json-v2 to match the rest
// of the core's wire codec.
package mcp

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
)

// discriminator reads just the "type" field of a JSON object without fully decoding it.
func discriminator(data []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("mcp: cannot read type discriminator: %w", err)
	}
	if probe.Type == "" {
		return "", fmt.Errorf("mcp: object has no \"type\" discriminator")
	}
	return probe.Type, nil
}

// DecodeContentBlock decodes one tagged-union content block per its "type" discriminator.
func DecodeContentBlock(data []byte) (ContentBlock, error) {
	kind, err := discriminator(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "text":
		var v TextContent
		return v, json.Unmarshal(data, &v)
	case "image":
		var v ImageContent
		return v, json.Unmarshal(data, &v)
	case "audio":
		var v AudioContent
		return v, json.Unmarshal(data, &v)
	case "resource_link":
		var v ResourceLinkContent
		return v, json.Unmarshal(data, &v)
	case "resource":
		var v EmbeddedResourceContent
		return v, json.Unmarshal(data, &v)
	case "tool_use":
		var v ToolUseContent
		return v, json.Unmarshal(data, &v)
	case "tool_result":
		var v ToolResultContent
		return v, json.Unmarshal(data, &v)
	default:
		return nil, fmt.Errorf("mcp: unknown content block type %q", kind)
	}
}

// DecodeContentBlocks decodes a JSON array of tagged content blocks.
func DecodeContentBlocks(data []byte) ([]ContentBlock, error) {
	var raw []jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	blocks := make([]ContentBlock, len(raw))
	for i, r := range raw {
		b, err := DecodeContentBlock(r)
		if err != nil {
			return nil, fmt.Errorf("mcp: content block %d: %w", i, err)
		}
		blocks[i] = b
	}
	return blocks, nil
}

// marshalTagged injects the "type" discriminator alongside v's own fields.
func marshalTagged(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]jsontext.Value
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	tagged := make(map[string]jsontext.Value, len(m)+1)
	tagged["type"] = jsontext.Value(fmt.Sprintf("%q", kind))
	for k, v := range m {
		tagged[k] = v
	}
	return json.Marshal(tagged)
}

func (t TextContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(t.Kind(), struct {
		Text        string       `json:"text"`
		Annotations *Annotations `json:"annotations,omitempty"`
		Meta        Meta         `json:"_meta,omitempty"`
	}{t.Text, t.Annotations, t.Meta})
}

func (i ImageContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(i.Kind(), struct {
		Data        string       `json:"data"`
		MimeType    string       `json:"mimeType"`
		Annotations *Annotations `json:"annotations,omitempty"`
		Meta        Meta         `json:"_meta,omitempty"`
	}{i.Data, i.MimeType, i.Annotations, i.Meta})
}

func (a AudioContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(a.Kind(), struct {
		Data        string       `json:"data"`
		MimeType    string       `json:"mimeType"`
		Annotations *Annotations `json:"annotations,omitempty"`
		Meta        Meta         `json:"_meta,omitempty"`
	}{a.Data, a.MimeType, a.Annotations, a.Meta})
}

func (r ResourceLinkContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(r.Kind(), r.Resource)
}

func (e EmbeddedResourceContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(e.Kind(), struct {
		Resource    ResourceContentsUnion `json:"resource"`
		Annotations *Annotations          `json:"annotations,omitempty"`
		Meta        Meta                  `json:"_meta,omitempty"`
	}{e.Resource, e.Annotations, e.Meta})
}

func (t ToolUseContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(t.Kind(), struct {
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Input map[string]any `json:"input,omitempty"`
		Meta  Meta           `json:"_meta,omitempty"`
	}{t.ID, t.Name, t.Input, t.Meta})
}

func (t ToolResultContent) MarshalJSON() ([]byte, error) {
	return marshalTagged(t.Kind(), struct {
		ToolUseID string         `json:"toolUseId"`
		Content   []ContentBlock `json:"content,omitempty"`
		IsError   bool           `json:"isError,omitempty"`
		Meta      Meta           `json:"_meta,omitempty"`
	}{t.ToolUseID, t.Content, t.IsError, t.Meta})
}

// MarshalJSON picks the text or blob arm, whichever is set.
func (u ResourceContentsUnion) MarshalJSON() ([]byte, error) {
	switch {
	case u.Text != nil:
		return json.Marshal(u.Text)
	case u.Blob != nil:
		return json.Marshal(u.Blob)
	default:
		return nil, fmt.Errorf("mcp: ResourceContentsUnion has neither text nor blob set")
	}
}

// UnmarshalJSON discriminates on the presence of "text" vs "blob".
func (u *ResourceContentsUnion) UnmarshalJSON(data []byte) error {
	var probe struct {
		Text *string `json:"text"`
		Blob *string `json:"blob"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.Text != nil:
		var v TextResourceContents
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		u.Text = &v
	case probe.Blob != nil:
		var v BlobResourceContents
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		u.Blob = &v
	default:
		return fmt.Errorf("mcp: resource contents has neither \"text\" nor \"blob\"")
	}
	return nil
}

// DecodePrimitiveSchema decodes one property of an elicitation requestedSchema object,
// discriminating on "type" and the presence of "enum".
func DecodePrimitiveSchema(data []byte) (PrimitiveSchema, error) {
	var probe struct {
		Type string `json:"type"`
		Enum []string `json:"enum"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("mcp: invalid primitive schema: %w", err)
	}
	if len(probe.Enum) > 0 {
		var v EnumSchema
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		v.Enum = probe.Enum
		v.Multi = probe.Type == "array"
		return v, nil
	}
	switch probe.Type {
	case "string":
		var v StringSchema
		return v, json.Unmarshal(data, &v)
	case "number":
		var v NumberSchema
		return v, json.Unmarshal(data, &v)
	case "integer":
		var v NumberSchema
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		v.Integer = true
		return v, nil
	case "boolean":
		var v BooleanSchema
		return v, json.Unmarshal(data, &v)
	default:
		return nil, fmt.Errorf("mcp: unknown primitive schema type %q", probe.Type)
	}
}

// DecodeRequestedSchema decodes an elicitation request's requestedSchema.properties map.
func DecodeRequestedSchema(properties map[string]jsontext.Value) (map[string]PrimitiveSchema, error) {
	out := make(map[string]PrimitiveSchema, len(properties))
	for name, raw := range properties {
		s, err := DecodePrimitiveSchema(raw)
		if err != nil {
			return nil, fmt.Errorf("mcp: property %q: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// UnmarshalJSON decodes each property against the primitive-schema union.
func (s *ElicitationObjectSchema) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       string                    `json:"type"`
		Properties map[string]jsontext.Value `json:"properties"`
		Required   []string                  `json:"required,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	props, err := DecodeRequestedSchema(raw.Properties)
	if err != nil {
		return err
	}
	s.Type = raw.Type
	s.Properties = props
	s.Required = raw.Required
	return nil
}

// MarshalJSON re-tags each property's primitive schema with its "type" discriminator.
func (s ElicitationObjectSchema) MarshalJSON() ([]byte, error) {
	props := make(map[string]jsontext.Value, len(s.Properties))
	for name, p := range s.Properties {
		body, err := marshalPrimitiveSchema(p)
		if err != nil {
			return nil, fmt.Errorf("mcp: property %q: %w", name, err)
		}
		props[name] = body
	}
	return json.Marshal(struct {
		Type       string                    `json:"type"`
		Properties map[string]jsontext.Value `json:"properties"`
		Required   []string                  `json:"required,omitempty"`
	}{s.Type, props, s.Required})
}

func marshalPrimitiveSchema(p PrimitiveSchema) ([]byte, error) {
	switch v := p.(type) {
	case StringSchema:
		return marshalTagged(v.Kind(), v)
	case NumberSchema:
		return marshalTagged(v.Kind(), struct {
			Title   *string  `json:"title,omitempty"`
			Minimum *float64 `json:"minimum,omitempty"`
			Maximum *float64 `json:"maximum,omitempty"`
			Default *float64 `json:"default,omitempty"`
		}{v.Title, v.Minimum, v.Maximum, v.Default})
	case BooleanSchema:
		return marshalTagged(v.Kind(), v)
	case EnumSchema:
		kind := "string"
		if v.Multi {
			kind = "array"
		}
		return marshalTagged(kind, struct {
			Title     *string  `json:"title,omitempty"`
			Enum      []string `json:"enum"`
			EnumNames []string `json:"enumNames,omitempty"`
			Default   any      `json:"default,omitempty"`
		}{v.Title, v.Enum, v.EnumNames, v.Default})
	default:
		return nil, fmt.Errorf("mcp: unknown primitive schema %T", p)
	}
}

// MillisDuration round-trips a non-negative duration as an integer count of milliseconds, per
// the wire's duration-encoding rule (SPEC_FULL.md: "all durations on the wire are non-negative
// integer milliseconds").
type MillisDuration int64

// SingleOrList decodes a field that the wire may encode as either a bare value or a JSON array
// of values, normalizing to a slice either way.
func SingleOrList[T any](data []byte) ([]T, error) {
	v := jsontext.Value(data)
	if v.Kind() == '[' {
		var list []T
		err := json.Unmarshal(data, &list)
		return list, err
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []T{single}, nil
}
