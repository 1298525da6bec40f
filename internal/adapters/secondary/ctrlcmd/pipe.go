package ctrlcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	DefaultEventName      = `Global\EpgTimerSrvConnect`
	DefaultPipeName       = "EpgTimerSrvPipe"
	DefaultConnectTimeout = 15 * time.Second
)

var (
	// ErrSignalNotFound indicates the server's connect signal does not exist
	ErrSignalNotFound = errors.New("connect signal not found")

	// ErrSignalTimeout indicates the connect signal was not set in time
	ErrSignalTimeout = errors.New("connect signal not set")
)

// Signal is the server's readiness event. The server sets it when it can
// accept the next pipe client.
type Signal interface {
	// Wait blocks until the signal is set, timeout elapses or ctx is done.
	Wait(ctx context.Context, timeout time.Duration) (bool, error)
	Close() error
}

// SignalOpener opens a named signal. It returns an error wrapping
// ErrSignalNotFound when no such signal exists.
type SignalOpener func(name string) (Signal, error)

// PipeDialer connects to a named pipe.
type PipeDialer func(ctx context.Context, name string) (net.Conn, error)

// PipeTransport reaches a local server through its connect signal and named pipe.
type PipeTransport struct {
	EventName      string
	PipeName       string
	ConnectTimeout time.Duration
	Limits         Limits

	OpenSignal SignalOpener
	DialPipe   PipeDialer
}

// NewPipeTransport creates a transport using the platform signal and pipe primitives
func NewPipeTransport(eventName, pipeName string, timeout time.Duration) *PipeTransport {
	return &PipeTransport{
		EventName:      eventName,
		PipeName:       pipeName,
		ConnectTimeout: timeout,
		Limits:         DefaultLimits,
		OpenSignal:     openSignal,
		DialPipe:       dialPipe,
	}
}

func (t *PipeTransport) RoundTrip(ctx context.Context, cmd Command, payload []byte) (ErrCode, []byte, error) {
	sig, err := t.OpenSignal(t.EventName)
	if err != nil {
		return CmdErrConnect, nil, fmt.Errorf("open %s: %w", t.EventName, err)
	}
	ready, err := sig.Wait(ctx, t.ConnectTimeout)
	sig.Close()
	if err != nil {
		return localErrCode(err, CmdErrConnect), nil, fmt.Errorf("wait %s: %w", t.EventName, err)
	}
	if !ready {
		return CmdErrTimeout, nil, fmt.Errorf("%w after %s: %s", ErrSignalTimeout, t.ConnectTimeout, t.EventName)
	}

	conn, err := t.DialPipe(ctx, t.PipeName)
	if err != nil {
		return localErrCode(err, CmdErrConnect), nil, fmt.Errorf("failed to connect to pipe %s: %w", t.PipeName, err)
	}
	defer conn.Close()

	return exchange(ctx, conn, cmd, payload, t.Limits)
}

// ServerAvailable reports whether the server's connect signal exists.
func (t *PipeTransport) ServerAvailable() bool {
	sig, err := t.OpenSignal(t.EventName)
	if err != nil {
		return false
	}
	sig.Close()
	return true
}
