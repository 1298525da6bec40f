package ctrlcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	DefaultTCPHost = "127.0.0.1"
	DefaultTCPPort = 5678
)

// TCPTransport reaches the server over its network port.
type TCPTransport struct {
	Addr           string
	ConnectTimeout time.Duration
	Limits         Limits
}

// NewTCPTransport creates a transport for host:port
func NewTCPTransport(host string, port int, timeout time.Duration) *TCPTransport {
	return &TCPTransport{
		Addr:           net.JoinHostPort(host, strconv.Itoa(port)),
		ConnectTimeout: timeout,
		Limits:         DefaultLimits,
	}
}

func (t *TCPTransport) RoundTrip(ctx context.Context, cmd Command, payload []byte) (ErrCode, []byte, error) {
	dialer := &net.Dialer{Timeout: t.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return dialErrCode(err), nil, fmt.Errorf("failed to connect to %s: %w", t.Addr, err)
	}
	defer conn.Close()

	return exchange(ctx, conn, cmd, payload, t.Limits)
}

func dialErrCode(err error) ErrCode {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CmdErrTimeout
	}
	return localErrCode(err, CmdErrConnect)
}
