package proxyserver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"interceptproxy/internal/connhandler"
	"interceptproxy/internal/console"
)

// writeCloser mirrors connhandler's unexported CloseWrite-forwarding
// interface, so trackedConn stays a plain net.Conn.
type writeCloser interface {
	CloseWrite() error
}

// trackedConn decrements the Server's active count when the connection is
// actually closed, rather than when Handler.Handle returns. A manual-mode
// connection is handed off to the Gate's queue and Handle returns almost
// immediately, long before the request is forwarded or dropped and the
// underlying socket closed; tying the decrement to Close keeps
// ActiveConnections counting every connection the Gate is still holding.
type trackedConn struct {
	net.Conn
	once    sync.Once
	untrack func()
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.untrack)
	return err
}

func (c *trackedConn) CloseWrite() error {
	if hc, ok := c.Conn.(writeCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}

// Backlog is the minimum listen backlog from spec.md §4.6, matching the
// original_source/netzy-proxy-https.py server_sock.listen(50) call. Run does
// not pass it to net.Listen, which uses the operating system's default
// backlog.
const Backlog = 50

// Server owns the listening socket and the set of active connections,
// generalizing the teacher's Server.conns/activeCount bookkeeping to a
// single plaintext listener with no TLS sibling.
type Server struct {
	Addr    string
	Handler *connhandler.Handler
	Console *console.Console
	Log     *logrus.Logger

	conns       sync.Map // map[net.Conn]struct{}
	activeCount int32
}

// New builds a Server that will accept on addr, dispatching every accepted
// connection to handler, alongside console (may be nil to run headless).
func New(addr string, handler *connhandler.Handler, cons *console.Console, log *logrus.Logger) *Server {
	return &Server{Addr: addr, Handler: handler, Console: cons, Log: log}
}

// ActiveConnections reports the number of connections currently being
// served, for operator-facing observability.
func (s *Server) ActiveConnections() int32 {
	return atomic.LoadInt32(&s.activeCount)
}

// Run binds the listener and serves until ctx is cancelled or the operator
// exits the console. It returns nil on a clean shutdown. A non-nil error
// joins whichever of the listener's accept-loop error and the console's
// error (failure to open the keyboard or to restore the terminal) actually
// occurred (go-multierror filters out the
// side that didn't fail), rather than reporting only whichever one
// errgroup.Group.Wait happened to see first.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.Log.Infof("listening on %s", ln.Addr())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var eg errgroup.Group
	var acceptErr, consoleErr error

	eg.Go(func() error {
		defer cancel()
		acceptErr = s.acceptLoop(runCtx, ln)
		return nil
	})
	if s.Console != nil {
		eg.Go(func() error {
			defer cancel()
			consoleErr = s.Console.Run(runCtx)
			return nil
		})
	}
	_ = eg.Wait()

	var result *multierror.Error
	result = multierror.Append(result, acceptErr)
	result = multierror.Append(result, consoleErr)
	return result.ErrorOrNil()
}

// acceptLoop runs the accept loop from spec.md §4.6, dispatching each
// connection to a fresh Connection Handler goroutine and tracking it the
// way the teacher's Server.Add/Remove did.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		tc := s.track(conn)
		go s.Handler.Handle(tc)
	}
}

// track registers conn as active and returns a wrapper that only reports the
// connection as no-longer-active once it is actually closed, which may
// happen well after Handler.Handle itself returns (see trackedConn).
func (s *Server) track(conn net.Conn) net.Conn {
	s.conns.Store(conn, struct{}{})
	n := atomic.AddInt32(&s.activeCount, 1)
	s.Log.WithField("active", n).Debug("connection accepted")
	return &trackedConn{Conn: conn, untrack: func() { s.untrack(conn) }}
}

func (s *Server) untrack(conn net.Conn) {
	s.conns.Delete(conn)
	n := atomic.AddInt32(&s.activeCount, -1)
	s.Log.WithField("active", n).Debug("connection closed")
}
