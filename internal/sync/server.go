package sync

import (
	"bufio"
	"context"
	"errors"
	"net"
)

// Server accepts TCP feed clients. Each client receives one JSON object per
// line; anything it sends is ignored.
type Server struct {
	Addr string
	Hub  *Hub
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.Hub.log
	log.Info().Str("addr", ln.Addr().String()).Msg("tcp feed listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.Hub.Welcome(conn)
		s.Hub.Add(conn)
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("tcp client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				log.Info().Str("remote", c.RemoteAddr().String()).Msg("tcp client disconnected")
			}()

			sc := bufio.NewScanner(c)
			for sc.Scan() {
				// incoming lines are ignored
			}
		}(conn)
	}
}
