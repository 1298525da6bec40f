package domain

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorConstants tests that all error constants are defined correctly
func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrConnection", ErrConnection, "connection failed"},
		{"ErrTimeout", ErrTimeout, "timeout"},
		{"ErrDisconnected", ErrDisconnected, "disconnected"},
		{"ErrRejected", ErrRejected, "rejected by server"},
		{"ErrFraming", ErrFraming, "framing error"},
		{"ErrInternal", ErrInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("%s should not be nil", tt.name)
			}
			if tt.err.Error() != tt.msg {
				t.Errorf("Error message: got %q, want %q", tt.err.Error(), tt.msg)
			}
		})
	}
}

// TestErrorWrapping tests that wrapped sentinels still match with errors.Is
func TestErrorWrapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"Wrapped ErrTimeout", fmt.Errorf("enum reserve: %w", ErrTimeout), ErrTimeout, true},
		{"Double wrapped ErrFraming", fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrFraming)), ErrFraming, true},
		{"Different sentinel", fmt.Errorf("x: %w", ErrConnection), ErrDisconnected, false},
		{"Same text, not wrapped", errors.New("timeout"), ErrTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
