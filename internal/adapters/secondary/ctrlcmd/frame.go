package ctrlcmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const frameHeaderSize = 8

var (
	// ErrPayloadTooLarge indicates a response length above Limits.MaxPayloadBytes
	ErrPayloadTooLarge = errors.New("response payload too large")

	// ErrRequestTooLarge indicates a request payload that does not fit the length field
	ErrRequestTooLarge = errors.New("request payload too large")
)

// Limits bounds what a transport accepts from the server.
type Limits struct {
	MaxPayloadBytes uint32
}

var DefaultLimits = Limits{
	MaxPayloadBytes: 64 << 20,
}

func (l Limits) normalize() Limits {
	if l.MaxPayloadBytes == 0 {
		return DefaultLimits
	}
	return l
}

// writeRequest sends the command header and payload in a single write.
func writeRequest(w io.Writer, cmd Command, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return ErrRequestTooLarge
	}
	buf := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(cmd))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// readResponse reads the status header and the payload it announces.
func readResponse(r io.Reader, lim Limits) (ErrCode, []byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return CmdErrDisconnect, nil, fmt.Errorf("read header: %w", err)
	}
	code := NormalizeErrCode(binary.LittleEndian.Uint32(hdr[0:4]))
	n := binary.LittleEndian.Uint32(hdr[4:8])
	if n > lim.normalize().MaxPayloadBytes {
		return CmdErrDisconnect, nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return CmdErrDisconnect, nil, fmt.Errorf("read body: %w", err)
	}
	return code, body, nil
}

// ReadRequest reads one request frame. It is the server side of writeRequest.
func ReadRequest(r io.Reader, lim Limits) (Command, []byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}
	cmd := Command(binary.LittleEndian.Uint32(hdr[0:4]))
	n := binary.LittleEndian.Uint32(hdr[4:8])
	if n > lim.normalize().MaxPayloadBytes {
		return cmd, nil, fmt.Errorf("%w: %d bytes", ErrRequestTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return cmd, nil, fmt.Errorf("read body: %w", err)
	}
	return cmd, body, nil
}

// WriteResponse sends one response frame.
func WriteResponse(w io.Writer, code ErrCode, payload []byte) error {
	buf := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(code))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}
