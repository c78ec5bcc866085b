package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	// KindValidation: a required input was missing or blank. No I/O happened.
	KindValidation Kind = "validation"
	// KindEncoding: a base64 payload could not be decoded. No I/O happened.
	KindEncoding Kind = "encoding"
	// KindTransport: connecting, sending or reading failed.
	KindTransport Kind = "transport"
	// KindProtocol: the server answered with a non-success status.
	KindProtocol Kind = "protocol"
	// KindDecode: the body was not the JSON that was expected.
	KindDecode Kind = "decode"
)

// Stage names the step of a call that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageEncode   Stage = "encode"
	StageConnect  Stage = "connect"
	StageRead     Stage = "read"
	StageStatus   Stage = "status"
	StageParse    Stage = "parse"
)

// Error is returned by every Service operation. Error() is the
// descriptive string shown to the user.
type Error struct {
	// Op is the operation, e.g. "fetch issues".
	Op string

	Kind  Kind
	Stage Stage

	// StatusCode is set for protocol errors.
	StatusCode int

	// Body holds the raw response body when one was read.
	Body string

	// Message is the user-facing description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(op, message string) *Error {
	return &Error{Op: op, Kind: KindValidation, Stage: StageValidate, Message: message}
}

func encodingError(op, what string, err error) *Error {
	return &Error{
		Op:      op,
		Kind:    KindEncoding,
		Stage:   StageEncode,
		Message: fmt.Sprintf("failed to decode %s base64: %v", what, err),
		Err:     err,
	}
}

func connectError(op string, err error) *Error {
	return &Error{
		Op:      op,
		Kind:    KindTransport,
		Stage:   StageConnect,
		Message: fmt.Sprintf("failed to connect to server: %v", err),
		Err:     err,
	}
}

func readError(op string, err error) *Error {
	return &Error{
		Op:      op,
		Kind:    KindTransport,
		Stage:   StageRead,
		Message: fmt.Sprintf("failed to read server response: %v", err),
		Err:     err,
	}
}

func statusError(op string, statusCode int, body []byte) *Error {
	return &Error{
		Op:         op,
		Kind:       KindProtocol,
		Stage:      StageStatus,
		StatusCode: statusCode,
		Body:       string(body),
		Message:    fmt.Sprintf("server returned error status: %d %s", statusCode, http.StatusText(statusCode)),
	}
}

func parseError(op string, body []byte, err error) *Error {
	return &Error{
		Op:      op,
		Kind:    KindDecode,
		Stage:   StageParse,
		Body:    string(body),
		Message: fmt.Sprintf("failed to parse server response: %v", err),
		Err:     err,
	}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiError *Error
	if errors.As(err, &apiError) {
		return apiError.Kind
	}
	return ""
}

// IsValidation reports whether err was rejected before any I/O because of
// missing input.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsEncoding reports whether err is a malformed base64 payload.
func IsEncoding(err error) bool { return KindOf(err) == KindEncoding }

// IsTransport reports whether err is a connection or read failure.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsProtocol reports whether err is a non-success HTTP status.
func IsProtocol(err error) bool { return KindOf(err) == KindProtocol }

// IsDecode reports whether err is an unparseable response body.
func IsDecode(err error) bool { return KindOf(err) == KindDecode }
