package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/go-envelope/lib/message"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Server accepts stream connections and answers the messages framed on them.
type Server struct {
	stream  config.StreamConfig
	serve   config.ServeConfig
	handler Handler

	// number of connections currently being served
	activeCount int32

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New returns a server that answers with handler.
func New(cfg *config.EnvelopeConfig, handler Handler) *Server {
	return &Server{
		stream:  cfg.Stream,
		serve:   cfg.Serve,
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on the configured unix socket and serves until
// Close is called. A stale socket file is removed first.
func (s *Server) ListenAndServe() error {
	socket := s.serve.Socket
	if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
		return oops.Wrapf(err, "creating socket directory")
	}
	if err := os.Remove(socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return oops.Wrapf(err, "removing stale socket %s", socket)
	}
	l, err := net.Listen("unix", socket)
	if err != nil {
		return oops.Wrapf(err, "listening on %s", socket)
	}
	return s.Serve(l)
}

// Serve accepts connections from l until Close is called, then returns nil.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = l.Close()
		return nil
	}
	s.listener = l
	s.mu.Unlock()

	log.WithFields(logger.Fields{
		"at":              "(Server) Serve",
		"addr":            l.Addr().String(),
		"max_connections": s.maxConnections(),
	}).Info("serving")

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return oops.Wrapf(err, "accepting connection")
		}
		if int(atomic.AddInt32(&s.activeCount, 1)) > s.maxConnections() {
			atomic.AddInt32(&s.activeCount, -1)
			log.WithFields(logger.Fields{
				"at":     "(Server) Serve",
				"reason": "connection limit reached",
				"limit":  s.maxConnections(),
			}).Warn("rejecting connection")
			_ = conn.Close()
			continue
		}
		if !s.track(conn) {
			atomic.AddInt32(&s.activeCount, -1)
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(conn)
		}()
	}
}

// ActiveConnections returns the number of connections being served.
func (s *Server) ActiveConnections() int {
	return int(atomic.LoadInt32(&s.activeCount))
}

func (s *Server) maxConnections() int {
	if s.serve.MaxConnections <= 0 {
		return config.DefaultMaxConnections
	}
	return s.serve.MaxConnections
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	atomic.AddInt32(&s.activeCount, -1)
	_ = conn.Close()
}

// serveConn answers requests on conn until it fails or a bad message
// closes it.
func (s *Server) serveConn(conn net.Conn) {
	stack := message.NewDispatchStack()
	ctx := message.WithDispatchStack(context.Background(), stack)
	for {
		obj, err := transport.ReadFrame(conn, s.stream)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.isClosed() {
				log.WithFields(logger.Fields{
					"at": "(Server) serveConn",
				}).WithError(err).Debug("connection read failed")
			}
			return
		}
		obj.SetBadMessageHandler(func(reason string) {
			log.WithFields(logger.Fields{
				"at":     "(Server) serveConn",
				"reason": reason,
			}).Warn("bad message, closing connection")
			_ = conn.Close()
		})

		req := message.FromTransport(obj)
		if req.IsNull() {
			return
		}
		if err := req.Validate(); err != nil {
			_ = req.NotifyBadMessage(err.Error())
			req.Reset()
			return
		}
		if !s.answer(ctx, conn, req) {
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, conn net.Conn, req *message.Message) bool {
	defer req.Reset()
	r := &receiver{handler: s.handler}
	ok, err := message.Dispatch(ctx, r, req)
	if err == nil {
		err = r.err
	}
	if err != nil {
		log.WithFields(logger.Fields{
			"at": "(Server) answer",
		}).WithError(err).Error("handler failed")
		return false
	}
	if !ok || r.reply == nil {
		return ok
	}
	obj := r.reply.TakeTransportHandle()
	if err := transport.WriteFrame(conn, obj); err != nil {
		_ = obj.Close()
		log.WithFields(logger.Fields{
			"at": "(Server) answer",
		}).WithError(err).Debug("writing reply failed")
		return false
	}
	return true
}

// Close stops accepting, closes every connection and waits for their
// goroutines to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.WithField("at", "(Server) Close").Debug("server closed")
	return err
}
