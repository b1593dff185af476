// Package jsonrpc implements the wire-level JSON-RPC 2.0 message model shared by the MCP
// session/dispatcher and transports: polymorphic decode/encode, the discriminated RequestID,
// and the reserved error code taxonomy. It has no knowledge of MCP methods or payload shapes --
// params/result bodies are carried as opaque jsontext.Value per the core's documented boundary.
package jsonrpc

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
)

const Version = "2.0"

// ResultValue is an opaque, not-yet-decoded JSON value -- the shape a Response's Result, a
// Request's Params, or a Notification's Params travel in before the caller decodes them into
// a concrete type. It is a type alias for jsontext.Value so callers outside this package don't
// need to import encoding/json/jsontext directly.
type ResultValue = jsontext.Value

// Message is the base for Request, Notification, Response, and Error. Every concrete type also
// carries a *Context accessor; Context is never part of the wire encoding.
type Message interface {
	isMessage()
	// Context returns the out-of-band context attached to this message, or nil if none was set.
	Context() *MessageContext
	// SetContext attaches out-of-band context to this message.
	SetContext(*MessageContext)
}

// MessageContext is out-of-band data traveling alongside a message for the duration of its
// processing. It is never serialized to or from the wire.
type MessageContext struct {
	// User identifies the authenticated principal behind the message, if any. Opaque to the core.
	User any
	// ExecutionContext carries implementation-specific execution state (e.g. a task execution
	// context) threaded alongside the message.
	ExecutionContext any
	// RelatedTransport is the transport instance that delivered (or will deliver) this message.
	RelatedTransport any
	// Items is a free-form bag for filters to stash per-message state.
	Items map[string]any
}

// Request is a JSON-RPC request: it carries an id and expects a correlated Response or Error.
type Request struct {
	ID     RequestID
	Method string
	Params jsontext.Value

	ctx *MessageContext
}

func (*Request) isMessage()                     {}
func (r *Request) Context() *MessageContext     { return r.ctx }
func (r *Request) SetContext(c *MessageContext) { r.ctx = c }

// Notification is a JSON-RPC message with no id; it expects no reply.
type Notification struct {
	Method string
	Params jsontext.Value

	ctx *MessageContext
}

func (*Notification) isMessage()                     {}
func (n *Notification) Context() *MessageContext     { return n.ctx }
func (n *Notification) SetContext(c *MessageContext) { n.ctx = c }

// Response is a successful reply correlated to a Request by id.
type Response struct {
	ID     RequestID
	Result jsontext.Value

	ctx *MessageContext
}

func (*Response) isMessage()                     {}
func (r *Response) Context() *MessageContext     { return r.ctx }
func (r *Response) SetContext(c *MessageContext) { r.ctx = c }

// ErrorResponse is a failed reply correlated to a Request by id.
type ErrorResponse struct {
	ID    RequestID
	Error *Error

	ctx *MessageContext
}

func (*ErrorResponse) isMessage()                     {}
func (e *ErrorResponse) Context() *MessageContext     { return e.ctx }
func (e *ErrorResponse) SetContext(c *MessageContext) { e.ctx = c }

// Error is the {code, message, data} payload of a JSON-RPC error response.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    jsontext.Value `json:"data,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message) }

// Reserved JSON-RPC / MCP error codes, per spec section 6.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeURLElicitationRequired indicates the client must complete one or more out-of-band
	// elicitations (carried in Error.Data as {"elicitations":[...]})  before retrying the request.
	CodeURLElicitationRequired = -32001
)

// IsMCPReservedRange reports whether code falls in the MCP-specific reserved band.
func IsMCPReservedRange(code int) bool { return code <= -32000 && code >= -32099 }

// wireEnvelope is the on-the-wire shape used for both decode (a superset scan) and encode
// (field-selective marshal per variant).
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RequestID      `json:"id,omitempty"`
	Method  *string         `json:"method,omitempty"`
	Params  jsontext.Value  `json:"params,omitempty"`
	Result  jsontext.Value  `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Decode performs a single-pass polymorphic decode of one JSON-RPC message, per the rules:
//   - jsonrpc != "2.0" (or missing)             -> error
//   - method present, id present                -> *Request
//   - method present, id absent                 -> *Notification
//   - id present, error present                  -> *ErrorResponse
//   - id present, result present (even if null)  -> *Response
//   - otherwise                                  -> error
//
// Decode distinguishes "result present" (even as JSON null) from "result absent" by checking
// for the literal "result" key via jsontext, since json.Unmarshal into jsontext.Value cannot by
// itself tell a present-null from an absent field.
func Decode(data []byte) (Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "malformed JSON-RPC message: " + err.Error()}
	}
	if env.JSONRPC != Version {
		return nil, &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf("unsupported or missing jsonrpc version %q", env.JSONRPC)}
	}

	hasResult := hasKey(data, "result")

	switch {
	case env.Method != nil && env.ID != nil:
		return &Request{ID: *env.ID, Method: *env.Method, Params: env.Params}, nil
	case env.Method != nil && env.ID == nil:
		return &Notification{Method: *env.Method, Params: env.Params}, nil
	case env.ID != nil && env.Error != nil:
		return &ErrorResponse{ID: *env.ID, Error: env.Error}, nil
	case env.ID != nil && hasResult:
		return &Response{ID: *env.ID, Result: env.Result}, nil
	default:
		return nil, &Error{Code: CodeInvalidRequest, Message: "message is neither a request, notification, response, nor error"}
	}
}

// hasKey reports whether the top-level JSON object in data contains the given key, distinguishing
// an explicit `"result":null` from an absent "result" field.
func hasKey(data []byte, key string) bool {
	var m map[string]jsontext.Value
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}

// Encode serializes a Message to its wire form, dispatching on its concrete variant. A null id
// is never produced by the codec; callers must supply a valid RequestID on Request/Response/Error.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Request:
		if !m.ID.IsValid() {
			return nil, fmt.Errorf("jsonrpc: request has no id")
		}
		return json.Marshal(struct {
			JSONRPC string         `json:"jsonrpc"`
			ID      RequestID      `json:"id"`
			Method  string         `json:"method"`
			Params  jsontext.Value `json:"params,omitempty"`
		}{Version, m.ID, m.Method, m.Params})
	case *Notification:
		return json.Marshal(struct {
			JSONRPC string         `json:"jsonrpc"`
			Method  string         `json:"method"`
			Params  jsontext.Value `json:"params,omitempty"`
		}{Version, m.Method, m.Params})
	case *Response:
		if !m.ID.IsValid() {
			return nil, fmt.Errorf("jsonrpc: response has no id")
		}
		result := m.Result
		if result == nil {
			result = jsontext.Value("null")
		}
		return json.Marshal(struct {
			JSONRPC string         `json:"jsonrpc"`
			ID      RequestID      `json:"id"`
			Result  jsontext.Value `json:"result"`
		}{Version, m.ID, result})
	case *ErrorResponse:
		if !m.ID.IsValid() {
			return nil, fmt.Errorf("jsonrpc: error response has no id")
		}
		return json.Marshal(struct {
			JSONRPC string    `json:"jsonrpc"`
			ID      RequestID `json:"id"`
			Error   *Error    `json:"error"`
		}{Version, m.ID, m.Error})
	default:
		return nil, fmt.Errorf("jsonrpc: unknown message variant %T", msg)
	}
}
