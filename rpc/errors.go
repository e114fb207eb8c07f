package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	handlerErrorName = "HANDLER_ERROR"
	timeoutErrorName = "TIMEOUT_ERROR"
)

// ErrorCause is the structured reason attached to a server error.
type ErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

// Error is an error object returned by the node.
type Error struct {
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Method is the RPC method that produced the error. It is not part of the wire format.
	Method string `json:"-"`
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: server error %d %q", e.Method, e.Code, e.Message)
	if e.Name != "" {
		s += " " + e.Name
	}
	if e.Cause != nil {
		s += "/" + e.Cause.Name
	}
	if len(e.Data) > 0 {
		s += ": " + string(e.Data)
	}
	return s
}

// IsTimeout reports whether err is the node saying it accepted a transaction but could not
// confirm its outcome in time.
func IsTimeout(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Name == handlerErrorName && rpcErr.Cause != nil && rpcErr.Cause.Name == timeoutErrorName
}

// TransportError means the request never produced a JSON-RPC response.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %s", e.Method, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is an unsuccessful HTTP response without a JSON-RPC body.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error %d", e.Status)
	}
	return fmt.Sprintf("HTTP error %d (%s)", e.Status, e.Body)
}

// QueryError is a query failure reported inside a successful response, as older nodes do.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string { return "query failed: " + e.Message }
