//go:build linux

// Package server drives the serving plane: it owns the reactor pool, the
// accept loops with their EMFILE recovery, and the per-connection
// state machines that feed requests through the dispatcher.
package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sys/unix"

	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/metrics"
	"github.com/katana-web/katana/core/reactor"
	"github.com/katana-web/katana/core/router"
	"github.com/katana-web/katana/core/shutdown"
	"github.com/katana-web/katana/core/socket"
)

// Server serves HTTP/1.1 on one TCP port through a reactor pool.
type Server struct {
	dispatch router.DispatchFunc

	host            string
	port            int
	workers         int
	backlog         int
	reuseport       bool
	pinThreads      bool
	shutdownTimeout time.Duration

	onStart   func()
	onStop    func()
	onRequest func(req *http.Request, resp *http.Response)

	metrics  metrics.ServerMetrics
	reserves []*socket.ReserveFD
}

// Option configures a Server.
type Option func(*Server)

// WithPort sets the listening port.
func WithPort(port int) Option { return func(s *Server) { s.port = port } }

// WithWorkers sets the reactor count; 0 means one per core.
func WithWorkers(n int) Option { return func(s *Server) { s.workers = n } }

// WithBacklog sets the listen backlog.
func WithBacklog(n int) Option { return func(s *Server) { s.backlog = n } }

// WithReusePort toggles the per-reactor SO_REUSEPORT listener fan-out.
func WithReusePort(enabled bool) Option { return func(s *Server) { s.reuseport = enabled } }

// WithPinThreads binds reactor threads to cores.
func WithPinThreads(enabled bool) Option { return func(s *Server) { s.pinThreads = enabled } }

// WithShutdownTimeout bounds the graceful drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithOnStart registers a callback run once listeners are up.
func WithOnStart(fn func()) Option { return func(s *Server) { s.onStart = fn } }

// WithOnStop registers a callback run when shutdown begins.
func WithOnStop(fn func()) Option { return func(s *Server) { s.onStop = fn } }

// WithOnRequest registers a per-request observer.
func WithOnRequest(fn func(*http.Request, *http.Response)) Option {
	return func(s *Server) { s.onRequest = fn }
}

// New creates a server that answers requests through dispatch.
func New(dispatch router.DispatchFunc, opts ...Option) *Server {
	s := &Server{
		dispatch:        dispatch,
		host:            "0.0.0.0",
		port:            8080,
		backlog:         1024,
		reuseport:       true,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics exposes the server's counters, e.g. for registering the
// metrics.Collector with a Prometheus registry.
func (s *Server) Metrics() *metrics.ServerMetrics {
	return &s.metrics
}

func countAcceptError(m *metrics.ServerMetrics, err error) {
	switch {
	case errors.Is(err, unix.EMFILE):
		m.Accept.EMFILE.Add(1)
	case errors.Is(err, unix.ENFILE):
		m.Accept.ENFILE.Add(1)
	case errors.Is(err, unix.ENOMEM):
		m.Accept.ENOMEM.Add(1)
	case errors.Is(err, unix.ENOBUFS):
		m.Accept.ENOBUFS.Add(1)
	default:
		m.Accept.Other.Add(1)
	}
}

// acceptLoop drains the listener backlog on every readiness event. The
// listener stays registered across all failure outcomes; temporary resource
// exhaustion must never kill the accept path.
func (s *Server) acceptLoop(r *reactor.Reactor, listenerFD int) {
	reserve := s.reserves[r.ID()]
	for {
		fd, _, err := unix.Accept4(listenerFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if wouldBlock(err) {
				return
			}
			countAcceptError(&s.metrics, err)
			logAcceptError(err, &s.metrics)
			if errors.Is(err, unix.EMFILE) && reserve != nil {
				if reserve.HandleEMFILE(listenerFD) {
					s.metrics.Accept.Recovered.Add(1)
				}
			}
			// Break, not return-forever: the next epoll wakeup retries.
			return
		}

		sock := socket.FromFD(fd)
		sock.SetNoDelay()

		c := newConn(s, r, fd)
		watch, err := r.Register(fd, reactor.Readable, c.handle)
		if err != nil {
			sock.Close()
			continue
		}
		c.watch = watch
	}
}

// Run starts the pool, binds listeners, installs signal handling, and blocks
// until the server has fully stopped. The returned error covers startup
// failures only; those are also what a CLI should exit non-zero on.
func (s *Server) Run() error {
	pool, err := reactor.NewPool(reactor.PoolConfig{
		Reactors:   s.workers,
		Backlog:    s.backlog,
		ReusePort:  s.reuseport,
		PinThreads: s.pinThreads,
	})
	if err != nil {
		return fmt.Errorf("reactor pool: %w", err)
	}

	// One reserve descriptor per reactor worker.
	s.reserves = make([]*socket.ReserveFD, pool.Size())
	for i := range s.reserves {
		s.reserves[i] = socket.NewReserveFD()
	}
	defer func() {
		for _, r := range s.reserves {
			r.Close()
		}
	}()

	if err := pool.StartListening(s.port, s.acceptLoop); err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}

	mgr := shutdown.Instance()
	mgr.SetupSignalHandlers()
	mgr.SetShutdownCallback(func() {
		if s.onStop != nil {
			s.onStop()
		}
		pool.GracefulStop(s.shutdownTimeout)
	})

	if s.onStart != nil {
		s.onStart()
	} else {
		log.Printf("🚀 HTTP server listening on http://%s:%d", s.host, s.port)
		log.Printf("   workers=%d reuseport=%v backlog=%d", pool.Size(), s.reuseport, s.backlog)
	}

	pool.Start()
	return pool.Wait()
}
