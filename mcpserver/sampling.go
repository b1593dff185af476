package mcpserver

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/task"
)

// Sample issues a sampling/createMessage request to the client, bracketing it with the
// auto-status hook when called inside a task worker (SPEC_FULL.md §4.5).
func (s *Server) Sample(ctx context.Context, req mcp.SamplingRequest) (mcp.SamplingResult, error) {
	if err := requireClientSampling(s.sess.ClientCapabilities); err != nil {
		return mcp.SamplingResult{}, err
	}
	if req.IncludeContext != nil && (*req.IncludeContext == "thisServer" || *req.IncludeContext == "allServers") {
		req.IncludeContext = nil
	}
	var out mcp.SamplingResult
	err := task.AutoStatusAroundSample(ctx, func() error {
		result, err := s.sess.SendRequest(ctx, "sampling/createMessage", req)
		if err != nil {
			return err
		}
		return unmarshalParams(result, &out)
	})
	return out, err
}

// Elicit issues an elicitation/create request to the client, bracketed the same way as Sample.
func (s *Server) Elicit(ctx context.Context, req mcp.ElicitationRequest) (mcp.ElicitationResult, error) {
	if err := requireClientElicitation(s.sess.ClientCapabilities, req.Mode); err != nil {
		return mcp.ElicitationResult{}, err
	}
	var out mcp.ElicitationResult
	err := task.AutoStatusAroundSample(ctx, func() error {
		result, err := s.sess.SendRequest(ctx, "elicitation/create", req)
		if err != nil {
			return err
		}
		return unmarshalParams(result, &out)
	})
	return out, err
}

// RequestRoots issues a roots/list request to the client.
func (s *Server) RequestRoots(ctx context.Context) (mcp.RootsList, error) {
	if err := requireClientRoots(s.sess.ClientCapabilities); err != nil {
		return mcp.RootsList{}, err
	}
	result, err := s.sess.SendRequest(ctx, "roots/list", struct{}{})
	if err != nil {
		return mcp.RootsList{}, err
	}
	var out mcp.RootsList
	if err := unmarshalParams(result, &out); err != nil {
		return mcp.RootsList{}, err
	}
	return out, nil
}

// PrimitiveKind enumerates the primitive Go kinds the typed-elicit helper can translate into
// an elicitation requestedSchema, per SPEC_FULL.md §4.7.
type PrimitiveKind int

const (
	PrimitiveString PrimitiveKind = iota
	PrimitiveNumber
	PrimitiveInteger
	PrimitiveBoolean
	PrimitiveStringEnum
)

// FieldDescriptor describes one field of a typed-elicit target type.
type FieldDescriptor struct {
	Name     string
	Title    *string
	Kind     PrimitiveKind
	Required bool
	// EnumValues is used only when Kind is PrimitiveStringEnum.
	EnumValues []string
}

type compiledSchema struct {
	requested *mcp.ElicitationObjectSchema
	validator *jsonschema.Schema
}

var (
	schemaCacheMu sync.Mutex
	schemaCache   = map[string]*compiledSchema{}
)

// ElicitTyped builds a request schema from fields (caching it per the field set's identity, a
// cheap proxy for "per serializer configuration" since Go has no runtime type descriptors to
// key on more precisely), sends elicitation/create, and re-assembles an accepted response into
// a plain map matching the field names. On decline/cancel it returns an empty map.
//
// The response a client hands back for "accept" is attacker-adjacent input (it crossed a
// transport boundary and the client is free to lie about what it collected), so it is validated
// against the same requestedSchema sent to the client before being handed to caller code.
func (s *Server) ElicitTyped(ctx context.Context, message string, fields []FieldDescriptor) (map[string]any, error) {
	cacheKey := fieldsCacheKey(fields)
	schemaCacheMu.Lock()
	compiled, ok := schemaCache[cacheKey]
	schemaCacheMu.Unlock()
	if !ok {
		schema, err := buildSchema(fields)
		if err != nil {
			return nil, err
		}
		validator, err := compileElicitationSchema(cacheKey, schema)
		if err != nil {
			return nil, err
		}
		compiled = &compiledSchema{requested: schema, validator: validator}
		schemaCacheMu.Lock()
		schemaCache[cacheKey] = compiled
		schemaCacheMu.Unlock()
	}

	result, err := s.Elicit(ctx, mcp.ElicitationRequest{Mode: "form", Message: message, RequestedSchema: compiled.requested})
	if err != nil {
		return nil, err
	}
	if result.Action != "accept" {
		return map[string]any{}, nil
	}
	if err := validateElicitationContent(compiled.validator, result.Content); err != nil {
		return nil, fmt.Errorf("mcpserver: client's elicitation response does not match the requested schema: %w", err)
	}
	return result.Content, nil
}

// compileElicitationSchema compiles a built requestedSchema into a validator, grounded on
// haasonsaas-nexus's ws_schema.go pattern of compiling once and caching by a stable key.
func compileElicitationSchema(key string, schema *mcp.ElicitationObjectSchema) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mcpserver: requested schema is not valid JSON Schema: %w", err)
	}
	resourceURL := "mem://elicitation/" + key
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(resourceURL)
}

func validateElicitationContent(validator *jsonschema.Schema, content map[string]any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return validator.Validate(instance)
}

func fieldsCacheKey(fields []FieldDescriptor) string {
	key := ""
	for _, f := range fields {
		title := ""
		if f.Title != nil {
			title = strconv.Quote(*f.Title)
		}
		key += fmt.Sprintf("%q:%d:%v:%s:%q|", f.Name, f.Kind, f.Required, title, f.EnumValues)
	}
	return url.PathEscape(key)
}

func buildSchema(fields []FieldDescriptor) (*mcp.ElicitationObjectSchema, error) {
	props := make(map[string]mcp.PrimitiveSchema, len(fields))
	var required []string
	for _, f := range fields {
		switch f.Kind {
		case PrimitiveString:
			props[f.Name] = mcp.StringSchema{Title: f.Title}
		case PrimitiveNumber:
			props[f.Name] = mcp.NumberSchema{Title: f.Title}
		case PrimitiveInteger:
			props[f.Name] = mcp.NumberSchema{Integer: true, Title: f.Title}
		case PrimitiveBoolean:
			props[f.Name] = mcp.BooleanSchema{Title: f.Title}
		case PrimitiveStringEnum:
			props[f.Name] = mcp.EnumSchema{Title: f.Title, Enum: f.EnumValues}
		default:
			return nil, fmt.Errorf("mcpserver: unsupported primitive kind for field %q (nullable wrappers are rejected)", f.Name)
		}
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return &mcp.ElicitationObjectSchema{Type: "object", Properties: props, Required: required}, nil
}
