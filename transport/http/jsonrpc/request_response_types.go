package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Request is a JSON RPC 2.0 request object
// http://www.jsonrpc.org/specification#request_object
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
}

// UnmarshalJSON keeps an explicit "id": null apart from an absent id. The
// former is a call whose response carries a null id, the latter is a
// notification and leaves ID nil.
func (r *Request) UnmarshalJSON(b []byte) error {
	var raw struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.JSONRPC, r.Method, r.Params, r.ID = raw.JSONRPC, raw.Method, raw.Params, nil
	if raw.ID != nil {
		id := new(RequestID)
		if err := id.UnmarshalJSON(raw.ID); err != nil {
			return err
		}
		r.ID = id
	}
	return nil
}

// IsNotification reports whether the request was sent without an id, in
// which case the server must not reply.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// RequestID is the request identifier. It holds a string, a number or null,
// and is encoded back exactly as it was received.
type RequestID struct {
	raw json.RawMessage
}

var errInvalidRequestID = errors.New("id must be a string, a number or null")

// NewIntRequestID returns an integer request identifier.
func NewIntRequestID(i int) *RequestID {
	return &RequestID{raw: json.RawMessage(strconv.Itoa(i))}
}

// NewStringRequestID returns a string request identifier.
func NewStringRequestID(s string) *RequestID {
	b, _ := json.Marshal(s)
	return &RequestID{raw: b}
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *RequestID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errInvalidRequestID
	}
	switch c := b[0]; {
	case c == 'n':
		if string(b) != "null" {
			return errInvalidRequestID
		}
	case c == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
	default:
		return errInvalidRequestID
	}
	id.raw = append(id.raw[:0], b...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// IsNull reports whether the identifier is the JSON null.
func (id RequestID) IsNull() bool {
	return len(id.raw) == 0 || string(id.raw) == "null"
}

// Int returns the identifier as an int, failing when it holds anything else.
func (id RequestID) Int() (int, error) {
	var i int
	err := json.Unmarshal(id.raw, &i)
	return i, err
}

// String returns the identifier as a string, failing when it holds anything
// else.
func (id RequestID) String() (string, error) {
	var s string
	err := json.Unmarshal(id.raw, &s)
	return s, err
}

// Equal reports whether both identifiers encode to the same JSON.
func (id *RequestID) Equal(other *RequestID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return bytes.Equal(id.raw, other.raw)
}

// Response is a JSON RPC 2.0 response object
// http://www.jsonrpc.org/specification#response_object
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      *RequestID      `json:"id"`
}

const (
	// Version defines the version of the JSON RPC implementation
	Version string = "2.0"

	// ContentType defines the content type to be served.
	ContentType string = "application/json; charset=utf-8"
)
