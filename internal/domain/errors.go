package domain

import "errors"

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnection indicates the server could not be reached
	ErrConnection = errors.New("connection failed")

	// ErrTimeout indicates the server did not become ready in time
	ErrTimeout = errors.New("timeout")

	// ErrDisconnected indicates the peer closed the channel mid-exchange
	ErrDisconnected = errors.New("disconnected")

	// ErrRejected indicates the server answered with a generic error status
	ErrRejected = errors.New("rejected by server")

	// ErrFraming indicates a malformed or truncated wire structure
	ErrFraming = errors.New("framing error")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
