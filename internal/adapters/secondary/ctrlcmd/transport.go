package ctrlcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Transport performs one request/response exchange with the server.
//
// Every call opens and closes its own connection, so a Transport may be
// used from several goroutines. A non-nil error is always paired with
// CmdErrConnect, CmdErrTimeout or CmdErrDisconnect. A cancelled ctx
// reports CmdErrDisconnect and an expired deadline CmdErrTimeout at
// every stage, see localErrCode.
type Transport interface {
	RoundTrip(ctx context.Context, cmd Command, payload []byte) (ErrCode, []byte, error)
}

// exchange sends one request on conn and reads the response. Cancelling
// ctx closes conn, which makes a blocked read fail as a disconnect.
func exchange(ctx context.Context, conn net.Conn, cmd Command, payload []byte, lim Limits) (ErrCode, []byte, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if err := writeRequest(conn, cmd, payload); err != nil {
		return CmdErrDisconnect, nil, fmt.Errorf("send request: %w", causeOf(ctx, err))
	}
	code, body, err := readResponse(conn, lim)
	if err != nil {
		return CmdErrDisconnect, nil, causeOf(ctx, err)
	}
	return code, body, nil
}

// localErrCode classifies a failure before the exchange starts. Context
// errors win over fallback.
func localErrCode(err error, fallback ErrCode) ErrCode {
	switch {
	case errors.Is(err, context.Canceled):
		return CmdErrDisconnect
	case errors.Is(err, context.DeadlineExceeded):
		return CmdErrTimeout
	}
	return fallback
}

// causeOf prefers the context error over the read or write error it triggered.
func causeOf(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}
