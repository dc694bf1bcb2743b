package common

import "errors"

// Sentinel errors, one per wire error code in the closed taxonomy.
var (
	ErrInvalidCommand     = errors.New("invalid command")
	ErrInvalidParameters  = errors.New("invalid parameters")
	ErrInsufficientNodes  = errors.New("insufficient nodes")
	ErrFileNotFound       = errors.New("file not found")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrNodeNotFound       = errors.New("node not found")
	ErrReadError          = errors.New("read error")
)

// WireCode maps a sentinel error to the wire protocol's error code token.
// Unrecognized errors fall back to READ_ERROR, matching the taxonomy's
// catch-all use for connection-level failures.
func WireCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCommand):
		return "INVALID_COMMAND"
	case errors.Is(err, ErrInvalidParameters):
		return "INVALID_PARAMETERS"
	case errors.Is(err, ErrInsufficientNodes):
		return "INSUFFICIENT_NODES"
	case errors.Is(err, ErrFileNotFound):
		return "FILE_NOT_FOUND"
	case errors.Is(err, ErrRegistrationFailed):
		return "REGISTRATION_FAILED"
	case errors.Is(err, ErrNodeNotFound):
		return "NODE_NOT_FOUND"
	default:
		return "READ_ERROR"
	}
}
