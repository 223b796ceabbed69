package source

import (
	"context"
	"net"
	"strings"
	"sync"
)

// UDPSource listens for datagrams. One datagram may carry several lines.
type UDPSource struct {
	base
	Addr string

	mu   sync.Mutex
	conn net.PacketConn
}

// Listen binds the socket. Run calls it when needed.
func (s *UDPSource) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	conn, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// LocalAddr returns the bound address, or nil before Listen.
func (s *UDPSource) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run reads datagrams until ctx is cancelled.
func (s *UDPSource) Run(ctx context.Context, out chan<- Line) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() {
		s.mu.Lock()
		_ = s.conn.Close()
		s.conn = nil
		s.mu.Unlock()
	}()

	buf := make([]byte, 65536)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, text := range strings.Split(string(buf[:n]), "\n") {
			if !s.emit(ctx, out, text) {
				return nil
			}
		}
	}
}
