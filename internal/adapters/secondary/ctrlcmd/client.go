// Package ctrlcmd implements the EpgTimerSrv CtrlCmd protocol: record
// marshalling, request framing and the pipe and TCP transports.
package ctrlcmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd/wire"
	"github.com/githubixx/edcbmon-go/internal/domain"
)

// CurrentVersion is the record version this client speaks.
const CurrentVersion uint16 = 5

// Mode selects the transport.
type Mode string

const (
	ModePipe Mode = "pipe"
	ModeTCP  Mode = "tcp"
)

// Config describes how to reach the server.
type Config struct {
	Mode           Mode
	EventName      string
	PipeName       string
	Host           string
	Port           int
	ConnectTimeout time.Duration
	Version        uint16
	Limits         Limits
	// Location is the zone of the server's wall clock. Nil means time.Local.
	Location       *time.Location
}

// DefaultConfig returns the settings of a local server on its named pipe.
func DefaultConfig() Config {
	return Config{
		Mode:           ModePipe,
		EventName:      DefaultEventName,
		PipeName:       DefaultPipeName,
		Host:           DefaultTCPHost,
		Port:           DefaultTCPPort,
		ConnectTimeout: DefaultConnectTimeout,
		Version:        CurrentVersion,
		Limits:         DefaultLimits,
	}
}

// Observer receives the outcome of every exchange.
type Observer interface {
	ObserveCall(cmd Command, code ErrCode, elapsed time.Duration)
}

// Client issues CtrlCmd requests. Calls are independent and may run
// concurrently; each opens its own connection.
type Client struct {
	transport Transport
	version   uint16
	loc       *time.Location
	logger    *slog.Logger
	observer  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for per-call debug output
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the call observer
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTransport replaces the transport built from Config
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// NewClient creates a client for cfg
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		version: cfg.Version,
		loc:     cfg.Location,
		logger:  slog.New(slog.DiscardHandler),
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.version == 0 {
		c.version = CurrentVersion
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport != nil {
		return c, nil
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	switch cfg.Mode {
	case ModePipe, "":
		t := NewPipeTransport(cfg.EventName, cfg.PipeName, timeout)
		t.Limits = cfg.Limits.normalize()
		c.transport = t
	case ModeTCP:
		t := NewTCPTransport(cfg.Host, cfg.Port, timeout)
		t.Limits = cfg.Limits.normalize()
		c.transport = t
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, cfg.Mode)
	}
	return c, nil
}

// Version returns the record version sent with versioned requests.
func (c *Client) Version() uint16 { return c.version }

// ServerAvailable reports whether a local server announces itself. Network
// transports have no such probe and always report true.
func (c *Client) ServerAvailable() bool {
	if p, ok := c.transport.(interface{ ServerAvailable() bool }); ok {
		return p.ServerAvailable()
	}
	return true
}

// EnumReserve returns all reservations.
func (c *Client) EnumReserve(ctx context.Context) ([]domain.ReserveData, error) {
	return callVersioned(ctx, c, CmdEnumReserve2, nil, DecodeReserveList)
}

// GetReserve returns one reservation.
func (c *Client) GetReserve(ctx context.Context, id uint32) (domain.ReserveData, error) {
	return callVersioned(ctx, c, CmdGetReserve2, func(w *wire.Writer) {
		w.WriteUint32(id)
	}, DecodeReserve)
}

// AddReserve creates the given reservations.
func (c *Client) AddReserve(ctx context.Context, list []domain.ReserveData) error {
	_, err := callVersioned[struct{}](ctx, c, CmdAddReserve2, func(w *wire.Writer) {
		EncodeReserveList(w, list)
	}, nil)
	return err
}

// ChgReserve replaces the given reservations, matched by ReserveID.
func (c *Client) ChgReserve(ctx context.Context, list []domain.ReserveData) error {
	_, err := callVersioned[struct{}](ctx, c, CmdChgReserve2, func(w *wire.Writer) {
		EncodeReserveList(w, list)
	}, nil)
	return err
}

// DelReserve deletes the reservations with the given ids.
func (c *Client) DelReserve(ctx context.Context, ids []uint32) error {
	_, err := callPlain[struct{}](ctx, c, CmdDelReserve, 0, func(w *wire.Writer) {
		wire.WriteValue(w, ids)
	}, nil)
	return err
}

// EnumTunerReserve returns the tuner each reservation is assigned to.
func (c *Client) EnumTunerReserve(ctx context.Context) ([]domain.TunerReserveInfo, error) {
	return callPlain(ctx, c, CmdEnumTunerReserve, 0, nil, DecodeTunerReserveList)
}

// GetPgInfo returns the program event with the given packed id.
// The exchange carries no version, so the response is read at the
// client's version.
func (c *Client) GetPgInfo(ctx context.Context, pgID uint64) (domain.EpgEventInfo, error) {
	return callPlain(ctx, c, CmdGetPgInfo, c.version, func(w *wire.Writer) {
		wire.WriteValue(w, pgID)
	}, DecodeEventInfo)
}

// EnumPgInfo returns the program events of one service.
func (c *Client) EnumPgInfo(ctx context.Context, serviceKey uint64) ([]domain.EpgEventInfo, error) {
	return callPlain(ctx, c, CmdEnumPgInfo, c.version, func(w *wire.Writer) {
		wire.WriteValue(w, serviceKey)
	}, DecodeEventInfoList)
}

// callVersioned prefixes the request with the client version and decodes
// the response at the version the server reports.
func callVersioned[T any](ctx context.Context, c *Client, cmd Command, body func(*wire.Writer), decode func(*wire.Reader) (T, error)) (T, error) {
	var zero T
	w := wire.NewWriterIn(c.version, c.loc)
	w.WriteUint16(c.version)
	if body != nil {
		body(w)
	}

	resp, err := c.roundTrip(ctx, cmd, w.Bytes())
	if err != nil || decode == nil {
		return zero, err
	}

	ver, err := wire.NewReader(resp, 0).ReadUint16()
	if err != nil {
		return zero, &DecodeError{Cmd: cmd, Err: wire.Annotate(err, cmd.String(), "Version")}
	}
	v, err := decode(wire.NewReaderIn(resp[2:], ver, c.loc))
	if err != nil {
		return zero, &DecodeError{Cmd: cmd, Err: err}
	}
	return v, nil
}

// callPlain sends the request without a version field and decodes the
// response at readVersion.
func callPlain[T any](ctx context.Context, c *Client, cmd Command, readVersion uint16, body func(*wire.Writer), decode func(*wire.Reader) (T, error)) (T, error) {
	var zero T
	w := wire.NewWriterIn(c.version, c.loc)
	if body != nil {
		body(w)
	}

	resp, err := c.roundTrip(ctx, cmd, w.Bytes())
	if err != nil || decode == nil {
		return zero, err
	}

	v, err := decode(wire.NewReaderIn(resp, readVersion, c.loc))
	if err != nil {
		return zero, &DecodeError{Cmd: cmd, Err: err}
	}
	return v, nil
}

func (c *Client) roundTrip(ctx context.Context, cmd Command, payload []byte) ([]byte, error) {
	start := time.Now()
	code, resp, err := c.transport.RoundTrip(ctx, cmd, payload)
	elapsed := time.Since(start)

	if c.observer != nil {
		c.observer.ObserveCall(cmd, code, elapsed)
	}
	c.logger.Debug("ctrlcmd call",
		slog.String("cmd", cmd.String()),
		slog.String("status", code.String()),
		slog.Duration("elapsed", elapsed),
		slog.Int("request_bytes", len(payload)),
		slog.Int("response_bytes", len(resp)),
	)

	if code != CmdSuccess {
		return nil, &CmdError{Cmd: cmd, Code: code, Err: err}
	}
	return resp, nil
}
