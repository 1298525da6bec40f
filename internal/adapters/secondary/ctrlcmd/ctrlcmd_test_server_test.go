package ctrlcmd_test

import (
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd"
	"github.com/githubixx/edcbmon-go/internal/adapters/secondary/ctrlcmd/wire"
)

// ctrlcmdExchange scripts one connection: the server reads one request
// and answers it.
type ctrlcmdExchange struct {
	expectCmd ctrlcmd.Command
	// Optional check of the request payload.
	check func(t *testing.T, payload []byte)

	status  uint32
	respond []byte
	// If set, written instead of the status header and respond.
	raw []byte
	// If true, the server closes the connection after reading the request.
	closeAfterRead bool
	// If true, the server reads the request and then waits for the client to go away.
	hang bool
}

type ctrlcmdTestServer struct {
	t       *testing.T
	ln      net.Listener
	scripts []ctrlcmdExchange

	mu        sync.Mutex
	accepted  int
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newCtrlCmdTestServer(t *testing.T, scripts []ctrlcmdExchange) *ctrlcmdTestServer {
	t.Helper()
	return newCtrlCmdTestServerOn(t, "tcp", "127.0.0.1:0", scripts)
}

func newCtrlCmdTestServerOn(t *testing.T, network, addr string, scripts []ctrlcmdExchange) *ctrlcmdTestServer {
	t.Helper()

	ln, err := net.Listen(network, addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &ctrlcmdTestServer{t: t, ln: ln, scripts: scripts}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

func (s *ctrlcmdTestServer) Addr() (string, int) {
	host, portStr, _ := net.SplitHostPort(s.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func (s *ctrlcmdTestServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *ctrlcmdTestServer) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		_ = s.ln.Close()
		s.wg.Wait()
	})
}

func (s *ctrlcmdTestServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.t.Errorf("accept: %v", err)
			}
			return
		}

		s.mu.Lock()
		idx := s.accepted
		s.accepted++
		s.mu.Unlock()

		if idx >= len(s.scripts) {
			s.t.Errorf("conn %d: unexpected connection", idx)
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn, idx, s.scripts[idx])
	}
}

func (s *ctrlcmdTestServer) handleConn(conn net.Conn, idx int, ex ctrlcmdExchange) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hdr [8]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		s.t.Errorf("conn %d: read header: %v", idx, err)
		return
	}
	cmd := ctrlcmd.Command(binary.LittleEndian.Uint32(hdr[0:4]))
	payload := make([]byte, binary.LittleEndian.Uint32(hdr[4:8]))
	if _, err := io.ReadFull(conn, payload); err != nil {
		s.t.Errorf("conn %d: read payload: %v", idx, err)
		return
	}

	if ex.expectCmd != 0 && cmd != ex.expectCmd {
		s.t.Errorf("conn %d: expected command %s, got %s", idx, ex.expectCmd, cmd)
		return
	}
	if ex.check != nil {
		ex.check(s.t, payload)
	}

	switch {
	case ex.closeAfterRead:
		return
	case ex.hang:
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _ = io.Copy(io.Discard, conn)
		return
	case ex.raw != nil:
		_, _ = conn.Write(ex.raw)
		return
	}

	out := make([]byte, 8, 8+len(ex.respond))
	binary.LittleEndian.PutUint32(out[0:4], ex.status)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(ex.respond)))
	out = append(out, ex.respond...)
	_, _ = conn.Write(out)
}

// versioned builds a versioned response body.
func versioned(version uint16, body func(w *wire.Writer)) []byte {
	w := wire.NewWriter(version)
	w.WriteUint16(version)
	body(w)
	return w.Bytes()
}

// plain builds an unversioned response body.
func plain(version uint16, body func(w *wire.Writer)) []byte {
	w := wire.NewWriter(version)
	body(w)
	return w.Bytes()
}
