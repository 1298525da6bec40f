// Package ctrlcmdtest provides an in-memory EpgTimerSrv that speaks the
// CtrlCmd protocol, for tests and for the integration stub container.
package ctrlcmdtest

import (
	"errors"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd"
	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd/wire"
	"github.com/githubixx/edcbmon-go/internal/domain"
)

// Server answers CtrlCmd requests from in-memory state. Each connection
// carries one exchange, as with the real server.
type Server struct {
	version uint16
	loc     *time.Location
	logger  *slog.Logger

	mu       sync.Mutex
	reserves []domain.ReserveData
	tuners   []domain.TunerReserveInfo
	events   []domain.EpgEventInfo
	nextID   uint32
	calls    []ctrlcmd.Command

	ln     net.Listener
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the highest record version the server speaks
func WithVersion(v uint16) Option {
	return func(s *Server) { s.version = v }
}

// WithLocation sets the zone of the server's wall clock
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger for per-request output
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates an empty server
func NewServer(opts ...Option) *Server {
	s := &Server{
		version:  ctrlcmd.CurrentVersion + 1,
		loc:      time.Local,
		logger:   slog.New(slog.DiscardHandler),
		reserves: []domain.ReserveData{},
		tuners:   []domain.TunerReserveInfo{},
		events:   []domain.EpgEventInfo{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed replaces the server state.
func (s *Server) Seed(reserves []domain.ReserveData, tuners []domain.TunerReserveInfo, events []domain.EpgEventInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves = slices.Clone(reserves)
	s.tuners = slices.Clone(tuners)
	s.events = slices.Clone(events)
	for _, r := range s.reserves {
		s.nextID = max(s.nextID, r.ReserveID)
	}
}

// Reserves returns a copy of the current reservations.
func (s *Server) Reserves() []domain.ReserveData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reserves)
}

// Calls returns the commands received so far.
func (s *Server) Calls() []ctrlcmd.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Listen starts serving on a new listener and returns its address.
func (s *Server) Listen(network, addr string) (net.Addr, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Serve(ln)
	}()
	return ln.Addr(), nil
}

// Serve accepts connections on ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops the listener and waits for open exchanges.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	cmd, payload, err := ctrlcmd.ReadRequest(conn, ctrlcmd.DefaultLimits)
	if err != nil {
		s.logger.Debug("read request failed", slog.Any("error", err))
		return
	}
	code, resp := s.Handle(cmd, payload)
	s.logger.Debug("handled request",
		slog.String("cmd", cmd.String()),
		slog.String("status", code.String()),
		slog.Int("response_bytes", len(resp)),
	)
	if err := ctrlcmd.WriteResponse(conn, code, resp); err != nil {
		s.logger.Debug("write response failed", slog.Any("error", err))
	}
}

// Handle answers one request.
func (s *Server) Handle(cmd ctrlcmd.Command, payload []byte) (ctrlcmd.ErrCode, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cmd)

	switch cmd {
	case ctrlcmd.CmdEnumReserve2:
		_, w, ok := s.versioned(payload)
		if !ok {
			return ctrlcmd.CmdErr, nil
		}
		ctrlcmd.EncodeReserveList(w, s.reserves)
		return ctrlcmd.CmdSuccess, w.Bytes()

	case ctrlcmd.CmdGetReserve2:
		r, w, ok := s.versioned(payload)
		if !ok {
			return ctrlcmd.CmdErr, nil
		}
		id, err := r.ReadUint32()
		if err != nil {
			return ctrlcmd.CmdErr, nil
		}
		res, found := domain.FindReserve(s.reserves, id)
		if !found {
			return ctrlcmd.CmdErr, nil
		}
		ctrlcmd.EncodeReserve(w, *res)
		return ctrlcmd.CmdSuccess, w.Bytes()

	case ctrlcmd.CmdAddReserve2:
		r, _, ok := s.versioned(payload)
		if !ok {
			return ctrlcmd.CmdErr, nil
		}
		list, err := ctrlcmd.DecodeReserveList(r)
		if err != nil {
			return ctrlcmd.CmdErr, nil
		}
		for _, res := range list {
			s.nextID++
			res.ReserveID = s.nextID
			s.reserves = append(s.reserves, res)
		}
		return ctrlcmd.CmdSuccess, nil

	case ctrlcmd.CmdChgReserve2:
		r, _, ok := s.versioned(payload)
		if !ok {
			return ctrlcmd.CmdErr, nil
		}
		list, err := ctrlcmd.DecodeReserveList(r)
		if err != nil {
			return ctrlcmd.CmdErr, nil
		}
		for _, res := range list {
			if cur, found := domain.FindReserve(s.reserves, res.ReserveID); found {
				*cur = res
			}
		}
		return ctrlcmd.CmdSuccess, nil

	case ctrlcmd.CmdDelReserve:
		ids, err := wire.ReadList(wire.NewReader(payload, 0), wire.ReadUint32Elem)
		if err != nil {
			return ctrlcmd.CmdErr, nil
		}
		s.reserves = slices.DeleteFunc(s.reserves, func(r domain.ReserveData) bool {
			return slices.Contains(ids, r.ReserveID)
		})
		for i := range s.tuners {
			s.tuners[i].ReserveList = slices.DeleteFunc(slices.Clone(s.tuners[i].ReserveList), func(id uint32) bool {
				return slices.Contains(ids, id)
			})
		}
		return ctrlcmd.CmdSuccess, nil

	case ctrlcmd.CmdEnumTunerReserve:
		w := wire.NewWriterIn(0, s.loc)
		ctrlcmd.EncodeTunerReserveList(w, s.tuners)
		return ctrlcmd.CmdSuccess, w.Bytes()

	case ctrlcmd.CmdGetPgInfo:
		pgID, err := wire.NewReader(payload, 0).ReadUint64()
		if err != nil {
			return ctrlcmd.CmdErr, nil
		}
		for _, e := range s.events {
			if e.Key().PgID() == pgID {
				w := wire.NewWriterIn(s.version, s.loc)
				ctrlcmd.EncodeEventInfo(w, e)
				return ctrlcmd.CmdSuccess, w.Bytes()
			}
		}
		return ctrlcmd.CmdErr, nil

	case ctrlcmd.CmdEnumPgInfo:
		key, err := wire.NewReader(payload, 0).ReadUint64()
		if err != nil {
			return ctrlcmd.CmdErr, nil
		}
		var list []domain.EpgEventInfo
		for _, e := range s.events {
			if domain.ServiceKey(e.OriginalNetworkID, e.TransportStreamID, e.ServiceID) == key {
				list = append(list, e)
			}
		}
		if len(list) == 0 {
			return ctrlcmd.CmdErr, nil
		}
		w := wire.NewWriterIn(s.version, s.loc)
		ctrlcmd.EncodeEventInfoList(w, list)
		return ctrlcmd.CmdSuccess, w.Bytes()

	default:
		return ctrlcmd.CmdErr, nil
	}
}

// versioned reads the client version from a versioned request and
// prepares a response writer at the lower of both versions.
func (s *Server) versioned(payload []byte) (*wire.Reader, *wire.Writer, bool) {
	ver, err := wire.NewReader(payload, 0).ReadUint16()
	if err != nil {
		return nil, nil, false
	}
	ver = min(ver, s.version)
	r := wire.NewReaderIn(payload[2:], ver, s.loc)
	w := wire.NewWriterIn(ver, s.loc)
	w.WriteUint16(ver)
	return r, w, true
}
