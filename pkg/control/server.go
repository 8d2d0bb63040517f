package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/ja7ad/loadgen/pkg/protocol"
)

// Requester answers one request.
type Requester interface {
	Handle(protocol.Message) protocol.Message
}

// Listen binds the control socket at path, replacing a stale one.
func Listen(path string) (*net.UnixListener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("control: remove stale socket: %w", err)
	}
	ln, err := net.ListenUnix(protocol.Network, &net.UnixAddr{Name: path, Net: protocol.Network})
	if err != nil {
		return nil, fmt.Errorf("control: listen: %w", err)
	}
	return ln, nil
}

// Server accepts one connection at a time and answers its requests in order.
type Server struct {
	ln  net.Listener
	h   Requester
	log *slog.Logger
}

// NewServer serves h on ln. A nil logger means slog.Default().
func NewServer(ln net.Listener, h Requester, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{ln: ln, h: h, log: log.With("component", "server")}
}

// Serve runs the accept loop until ctx is cancelled, which closes the
// listener and the current connection. It returns nil on cancellation.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn("accept", "err", err)
			continue
		}
		s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	// one spare byte so an oversized datagram shows up as a bad size
	buf := make([]byte, protocol.FrameSize+1)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Warn("receive", "err", err)
			}
			return
		}

		req, err := protocol.Unmarshal(buf[:n])
		if err != nil {
			s.log.Warn("dropping frame", "err", err)
			continue
		}

		resp := s.h.Handle(req)
		if _, err := conn.Write(protocol.Marshal(resp)); err != nil {
			s.log.Warn("send", "err", err)
			return
		}
	}
}
