// Package tcp serves the line-oriented chat protocol over plain TCP.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/netchat/netchat-server/internal/core"
)

// Server owns the accept loop: it admits connections into the registry
// and spawns one session worker per admitted channel.
type Server struct {
	addr   string
	reg    *core.Registry
	worker *core.Worker
	log    *zerolog.Logger

	ln net.Listener
	wg sync.WaitGroup
}

// NewServer builds a TCP chat server.
func NewServer(addr string, reg *core.Registry, worker *core.Worker, logger *zerolog.Logger) *Server {
	return &Server{
		addr:   addr,
		reg:    reg,
		worker: worker,
		log:    logger,
	}
}

// Listen binds the listener. Split from Serve so callers learn the bound
// address (":0" in tests) before any client connects.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the listener closes. A full registry
// turns an accept into a one-line rejection; no worker is spawned.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		ch := newLineChannel(conn)
		sess, err := s.reg.Admit(ch)
		if err != nil {
			s.log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("connection rejected, server full")
			_ = ch.WriteLine(core.ServerFullNotice)
			_ = ch.Close()
			continue
		}

		s.log.Info().Str("remote", conn.RemoteAddr().String()).Str("session_id", sess.ID).Msg("client connected")

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker.Run(ctx, sess)
		}()
	}
}

// Shutdown stops accepting and waits for all session workers to drain.
// The caller is expected to have notified and closed the sessions first.
func (s *Server) Shutdown() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.wg.Wait()
}
