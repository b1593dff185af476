package jsonrpc

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"strconv"
)

// RequestID is a JSON-RPC 2.0 id: either a string or a signed 64-bit integer, discriminated
// at the wire by JSON token kind (a quoted token decodes to a string id; a number token decodes
// to an int64 id). RequestID("5") and RequestID(int64(5)) are NOT equal -- equality is type-aware.
type RequestID struct {
	s       string
	n       int64
	isInt   bool
	isValid bool
}

// NewStringID returns a RequestID backed by a string.
func NewStringID(s string) RequestID { return RequestID{s: s, isValid: true} }

// NewIntID returns a RequestID backed by a signed 64-bit integer.
func NewIntID(n int64) RequestID { return RequestID{n: n, isInt: true, isValid: true} }

// IsValid reports whether the id carries a value; the zero RequestID is invalid and must
// never be written to the wire (a null id is never produced, per the JSON-RPC codec contract).
func (id RequestID) IsValid() bool { return id.isValid }

// IsInt reports whether the id is backed by an integer (vs. a string).
func (id RequestID) IsInt() bool { return id.isInt }

// String returns the id's string form, for logging and map keys where a string form is convenient.
// It is not the wire representation of a string id (use MarshalJSON for that).
func (id RequestID) String() string {
	if !id.isValid {
		return "<invalid>"
	}
	if id.isInt {
		return strconv.FormatInt(id.n, 10)
	}
	return id.s
}

// Int64 returns the id's integer value and true if it is backed by an integer.
func (id RequestID) Int64() (int64, bool) { return id.n, id.isInt }

// Equal reports type-aware equality: a string id never equals an int id with the same text.
func (id RequestID) Equal(other RequestID) bool {
	if id.isValid != other.isValid {
		return false
	}
	if id.isInt != other.isInt {
		return false
	}
	if id.isInt {
		return id.n == other.n
	}
	return id.s == other.s
}

func (id RequestID) MarshalJSON() ([]byte, error) {
	if !id.isValid {
		return nil, fmt.Errorf("jsonrpc: cannot marshal an invalid RequestID")
	}
	if id.isInt {
		return json.Marshal(id.n)
	}
	return json.Marshal(id.s)
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	v := jsontext.Value(data)
	switch v.Kind() {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RequestID{s: s, isValid: true}
	case '0':
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("jsonrpc: request id must be a string or an integer: %w", err)
		}
		*id = RequestID{n: n, isInt: true, isValid: true}
	default:
		return fmt.Errorf("jsonrpc: request id must be a string or a number, got kind %q", v.Kind())
	}
	return nil
}
