//go:build linux

package reactor

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/katana-web/katana/core/cpuinfo"
	"github.com/katana-web/katana/core/socket"
)

// PoolConfig controls the reactor pool.
type PoolConfig struct {
	// Reactors is the worker count; <= 0 selects one per core.
	Reactors int
	// Backlog is the listen backlog per listener.
	Backlog int
	// ReusePort enables one SO_REUSEPORT listener per reactor. When false
	// a single listener is registered on reactor 0.
	ReusePort bool
	// PinThreads binds each loop thread to its core.
	PinThreads bool
}

// AcceptHandler runs on a reactor's thread when its listener becomes
// readable. It must loop accept until EAGAIN (edge-triggered).
type AcceptHandler func(r *Reactor, listenerFD int)

// Pool is a fixed set of reactors, one loop thread each, sharing nothing.
type Pool struct {
	cfg       PoolConfig
	reactors  []*Reactor
	listeners []*socket.Listener
	accepts   []*Watch
	group     errgroup.Group
}

// NewPool instantiates cfg.Reactors reactors.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Reactors <= 0 {
		cfg.Reactors = cpuinfo.CoreCount()
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 1024
	}
	p := &Pool{cfg: cfg}
	for i := 0; i < cfg.Reactors; i++ {
		r, err := New(i)
		if err != nil {
			p.closeReactors()
			return nil, fmt.Errorf("reactor %d: %w", i, err)
		}
		p.reactors = append(p.reactors, r)
	}
	return p, nil
}

func (p *Pool) closeReactors() {
	for _, r := range p.reactors {
		r.Close()
	}
}

// Size returns the reactor count.
func (p *Pool) Size() int { return len(p.reactors) }

// Reactor returns reactor i.
func (p *Pool) Reactor(i int) *Reactor { return p.reactors[i] }

// StartListening binds listeners on port and registers them for readability
// with accept. With ReusePort, every reactor gets its own listener and the
// kernel load-balances accepted connections; otherwise a single listener
// lands on reactor 0. Must be called before Start.
func (p *Pool) StartListening(port int, accept AcceptHandler) error {
	bind := func(r *Reactor, reuseport bool) error {
		l, err := socket.Listen(socket.ListenConfig{
			Port:      port,
			Backlog:   p.cfg.Backlog,
			ReusePort: reuseport,
		})
		if err != nil {
			return err
		}
		fd := l.FD()
		w, err := r.Register(fd, Readable, func(EventType) {
			accept(r, fd)
		})
		if err != nil {
			l.Close()
			return err
		}
		p.listeners = append(p.listeners, l)
		p.accepts = append(p.accepts, w)
		return nil
	}

	if p.cfg.ReusePort {
		for _, r := range p.reactors {
			if err := bind(r, true); err != nil {
				p.stopListening()
				return fmt.Errorf("listener on reactor %d: %w", r.ID(), err)
			}
		}
		return nil
	}
	if err := bind(p.reactors[0], false); err != nil {
		return fmt.Errorf("fallback listener: %w", err)
	}
	return nil
}

func (p *Pool) stopListening() {
	// Accept watches own the listener fds; resetting closes them.
	for i, w := range p.accepts {
		r := p.reactors[0]
		if p.cfg.ReusePort {
			r = p.reactors[i]
		}
		watch := w
		r.Submit(func() { watch.Reset() })
	}
	p.accepts = nil
	p.listeners = nil
}

// Start launches every reactor loop on its own locked (and optionally
// pinned) OS thread.
func (p *Pool) Start() {
	for _, r := range p.reactors {
		reactor := r
		p.group.Go(func() error {
			reactor.pinAndRun(p.cfg.PinThreads)
			return nil
		})
	}
}

// Wait blocks until every reactor loop has exited.
func (p *Pool) Wait() error {
	err := p.group.Wait()
	p.closeReactors()
	return err
}

// GracefulStop drains the pool: close listeners, flag reactors as draining,
// give in-flight connections up to timeout to finish their current cycle,
// force-close the rest, then stop the loops. Wait still joins the workers.
func (p *Pool) GracefulStop(timeout time.Duration) {
	p.stopListening()
	for _, r := range p.reactors {
		r.SetDraining()
		r.Wake()
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		open := 0
		for _, r := range p.reactors {
			open += r.WatchCount()
		}
		if open == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, r := range p.reactors {
		reactor := r
		reactor.Submit(func() {
			if n := reactor.WatchCount(); n > 0 {
				log.Printf("reactor %d: force-closing %d connection(s)", reactor.ID(), n)
			}
			reactor.ResetAllWatches()
		})
		reactor.Stop()
	}
}
