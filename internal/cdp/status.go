package cdp

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrorCode classifies engine and protocol failures into the closed
// set the automation layer above keys its behavior on.
type ErrorCode int

const (
	// CodeUnknownError covers anything without a more specific class.
	CodeUnknownError ErrorCode = iota
	// CodeTimeout means a deadline expired while waiting on the wire.
	CodeTimeout
	// CodeDisconnected means the transport is gone; every operation
	// fails with it until the client reconnects.
	CodeDisconnected
	// CodeInvalidArgument mirrors the protocol's parameter rejection.
	CodeInvalidArgument
	// CodeUnknownCommand means the endpoint does not implement the
	// requested method.
	CodeUnknownCommand
	// CodeNoSuchFrame means the targeted frame or session is gone.
	CodeNoSuchFrame
	// CodeUnexpectedAlertOpen means a javascript dialog opened and the
	// command cannot be answered until it is dismissed.
	CodeUnexpectedAlertOpen
)

func (c ErrorCode) String() string {
	switch c {
	case CodeTimeout:
		return "timeout"
	case CodeDisconnected:
		return "disconnected"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeUnknownCommand:
		return "unknown command"
	case CodeNoSuchFrame:
		return "no such frame"
	case CodeUnexpectedAlertOpen:
		return "unexpected alert open"
	default:
		return "unknown error"
	}
}

// Error is a classified protocol or engine failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the classification of err. Errors that did not
// originate from this package classify as CodeUnknownError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknownError
}

// parseInspectorError maps a raw protocol error object onto the domain
// taxonomy. Unrecognized payloads surface as CodeUnknownError with the
// original payload preserved verbatim.
func parseInspectorError(raw string) error {
	if raw == "" {
		return newError(CodeUnknownError, "inspector error with no error message")
	}
	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return newError(CodeUnknownError, "unhandled inspector error: "+raw)
	}
	switch payload.Code {
	case -32602:
		return newError(CodeInvalidArgument, payload.Message)
	case -32601:
		return newError(CodeUnknownCommand, payload.Message)
	case -32000:
		// The server reuses its generic error code here; the message
		// content is the only way to recognize a missing frame.
		lower := strings.ToLower(payload.Message)
		if strings.Contains(lower, "frame") && strings.Contains(lower, "not found") {
			return newError(CodeNoSuchFrame, payload.Message)
		}
	case -32001:
		return newError(CodeNoSuchFrame, payload.Message)
	}
	if strings.Contains(payload.Message, "Cannot navigate to invalid URL") {
		return newError(CodeInvalidArgument, payload.Message)
	}
	return newError(CodeUnknownError, "unhandled inspector error: "+raw)
}
