package ctrlcmd

import (
	"errors"
	"fmt"

	"github.com/githubixx/edcbmon-go/internal/domain"
)

// ErrCode is the status of one exchange, either sent by the server or
// produced locally when the exchange could not complete.
type ErrCode uint32

const (
	CmdErr           ErrCode = 0
	CmdSuccess       ErrCode = 1
	CmdErrConnect    ErrCode = 204
	CmdErrTimeout    ErrCode = 205
	CmdErrDisconnect ErrCode = 206
)

// NormalizeErrCode maps status values unknown to this client to CmdErr.
func NormalizeErrCode(v uint32) ErrCode {
	switch c := ErrCode(v); c {
	case CmdSuccess, CmdErr, CmdErrConnect, CmdErrTimeout, CmdErrDisconnect:
		return c
	default:
		return CmdErr
	}
}

func (c ErrCode) String() string {
	switch c {
	case CmdSuccess:
		return "success"
	case CmdErr:
		return "error"
	case CmdErrConnect:
		return "connect_error"
	case CmdErrTimeout:
		return "timeout"
	case CmdErrDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("status_%d", uint32(c))
	}
}

// Command identifies a server operation.
type Command uint32

const (
	CmdDelReserve       Command = 1014
	CmdEnumTunerReserve Command = 1016
	CmdEnumPgInfo       Command = 1022
	CmdGetPgInfo        Command = 1023
	CmdEnumReserve2     Command = 2011
	CmdGetReserve2      Command = 2012
	CmdAddReserve2      Command = 2013
	CmdChgReserve2      Command = 2015
)

var commandNames = map[Command]string{
	CmdDelReserve:       "DelReserve",
	CmdEnumTunerReserve: "EnumTunerReserve",
	CmdEnumPgInfo:       "EnumPgInfo",
	CmdGetPgInfo:        "GetPgInfo",
	CmdEnumReserve2:     "EnumReserve2",
	CmdGetReserve2:      "GetReserve2",
	CmdAddReserve2:      "AddReserve2",
	CmdChgReserve2:      "ChgReserve2",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cmd_%d", uint32(c))
}

// CmdError reports an exchange that did not end with CmdSuccess.
// Err carries the local cause when the exchange failed before a status arrived.
type CmdError struct {
	Cmd  Command
	Code ErrCode
	Err  error
}

func (e *CmdError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ctrlcmd: %s: %s: %v", e.Cmd, e.Code, e.Err)
	}
	return fmt.Sprintf("ctrlcmd: %s: %s", e.Cmd, e.Code)
}

func (e *CmdError) Unwrap() error { return e.Err }

// Is maps the status code to the matching domain sentinel.
func (e *CmdError) Is(target error) bool {
	switch e.Code {
	case CmdErrConnect:
		return target == domain.ErrConnection
	case CmdErrTimeout:
		return target == domain.ErrTimeout
	case CmdErrDisconnect:
		return target == domain.ErrDisconnected
	default:
		return target == domain.ErrRejected
	}
}

// DecodeError reports a successful exchange whose response could not be decoded.
type DecodeError struct {
	Cmd Command
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ctrlcmd: %s: decode response: %v", e.Cmd, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusOf returns the status code carried by err. nil reports CmdSuccess;
// decode failures and foreign errors report CmdErr.
func StatusOf(err error) ErrCode {
	if err == nil {
		return CmdSuccess
	}
	var ce *CmdError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CmdErr
}
