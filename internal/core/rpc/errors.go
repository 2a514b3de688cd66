package rpc

import "errors"

// Core rpc errors
var (
	// Connection errors

	ErrConnectionClosed  = errors.New("connection is closed")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrDialFailed        = errors.New("dial failed")
	ErrNotConnected      = errors.New("not connected")

	// Request errors

	ErrRequestTimeout = errors.New("request timeout")
	ErrServerFault    = errors.New("server reported an error")

	// Frame errors

	ErrInvalidFrame     = errors.New("invalid frame")
	ErrChecksumMismatch = errors.New("frame checksum mismatch")

	// Callback errors

	ErrCallbackRegistered    = errors.New("callback already registered")
	ErrCallbackNotRegistered = errors.New("callback not registered")
)

// ErrorCode classifies an Error for coarse handling decisions.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeConnectivity
	CodeTimeout
	CodeProtocol
	CodeServer
)

// Error is an rpc failure with enough context to decide whether the
// connection itself is suspect.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsConnectivity reports whether err indicates the link to the server is
// broken or unresponsive, as opposed to the server rejecting the operation.
func IsConnectivity(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionClosed),
		errors.Is(err, ErrConnectionTimeout),
		errors.Is(err, ErrDialFailed),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrRequestTimeout):
		return true
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == CodeConnectivity || rpcErr.Code == CodeTimeout
	}
	return false
}
