//go:build windows

package ctrlcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

const pipePrefix = `\\.\pipe\`

// waitSlice bounds each kernel wait so a cancelled ctx is noticed.
const waitSlice = 100 * time.Millisecond

type eventSignal struct {
	h windows.Handle
}

func openSignal(name string) (Signal, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenEvent(windows.SYNCHRONIZE, false, p)
	if err != nil {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return nil, fmt.Errorf("%w: %s", ErrSignalNotFound, name)
		}
		return nil, err
	}
	return &eventSignal{h: h}, nil
}

func (s *eventSignal) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		step := min(max(time.Until(deadline), 0), waitSlice)
		ev, err := windows.WaitForSingleObject(s.h, uint32(step.Milliseconds()))
		switch {
		case ev == windows.WAIT_OBJECT_0:
			return true, nil
		case ev == uint32(windows.WAIT_TIMEOUT):
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if !time.Now().Before(deadline) {
				return false, nil
			}
		default:
			if err == nil {
				err = fmt.Errorf("wait returned %#x", ev)
			}
			return false, err
		}
	}
}

func (s *eventSignal) Close() error {
	return windows.CloseHandle(s.h)
}

func dialPipe(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, pipePrefix+name)
}
