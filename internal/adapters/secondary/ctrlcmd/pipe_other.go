//go:build !windows

package ctrlcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Outside Windows the connect signal is a marker file whose content starts
// with '1' while set, and the pipe is a Unix domain socket. Relative names
// resolve inside the temp directory.

const signalPollInterval = 50 * time.Millisecond

func localPath(name, suffix string) string {
	if filepath.IsAbs(name) {
		return name
	}
	name = strings.NewReplacer(`\`, "_", "/", "_").Replace(name)
	return filepath.Join(os.TempDir(), name+suffix)
}

type fileSignal struct {
	path string
}

func openSignal(name string) (Signal, error) {
	path := localPath(name, ".signal")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSignalNotFound, path)
		}
		return nil, err
	}
	return &fileSignal{path: path}, nil
}

func (s *fileSignal) set() (bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return false, err
	}
	return bytes.HasPrefix(b, []byte("1")), nil
}

func (s *fileSignal) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	tick := time.NewTicker(signalPollInterval)
	defer tick.Stop()

	for {
		ok, err := s.set()
		if err != nil || ok {
			return ok, err
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
			return false, nil
		case <-tick.C:
		}
	}
}

func (s *fileSignal) Close() error { return nil }

func dialPipe(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", localPath(name, ".sock"))
}
