//go:build linux

// Package reactor implements the edge-triggered I/O core: one epoll instance,
// one event ring and one loop goroutine per reactor, plus a pool that runs one
// reactor per core (pinning each loop thread to its core when PinThreads is
// set) and fans a SO_REUSEPORT listener out to each.
//
// Connections accepted on reactor k live and die on reactor k's thread.
// There is no work stealing; the kernel balances load at accept time.
package reactor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/katana-web/katana/core/cpuinfo"
)

// EventType is the readiness interest / delivery mask for a watch.
type EventType uint8

const (
	// Readable requests/reports read readiness.
	Readable EventType = 1 << iota
	// Writable requests/reports write readiness.
	Writable
)

// ReadWrite is both interests combined.
const ReadWrite = Readable | Writable

// Callback is invoked on the reactor's own thread when a watched fd becomes
// ready. The callback must drain the fd to EAGAIN before re-arming interest
// (edge-triggered). It may Modify the watch, Reset it, or leave it alone.
type Callback func(EventType)

// Reactor owns one epoll instance and the fd watches registered with it.
// All methods except Wake, Submit, Stop, SetDraining and WatchCount must be
// called from the reactor's own loop thread (or before Run starts).
type Reactor struct {
	id     int
	epfd   int
	wakeFD int

	watches map[int]*Watch
	events  []unix.EpollEvent

	taskMu sync.Mutex
	tasks  []func()

	watchCount atomic.Int64

	stopRequested atomic.Bool
	draining      atomic.Bool
}

// New creates a reactor with the given id. The id doubles as the core the
// pool pins the loop thread to.
func New(id int) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	r := &Reactor{
		id:      id,
		epfd:    epfd,
		wakeFD:  wakeFD,
		watches: make(map[int]*Watch, 1024),
		events:  make([]unix.EpollEvent, 256),
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(wakeFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &ev); err != nil {
		unix.Close(wakeFD)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl add wake fd: %w", err)
	}
	return r, nil
}

// ID returns the reactor's index in its pool.
func (r *Reactor) ID() int { return r.id }

func epollBits(interest EventType) uint32 {
	bits := uint32(unix.EPOLLET | unix.EPOLLRDHUP)
	if interest&Readable != 0 {
		bits |= unix.EPOLLIN
	}
	if interest&Writable != 0 {
		bits |= unix.EPOLLOUT
	}
	return bits
}

// Register adds fd to the interest set and returns its watch. Resetting the
// watch unregisters the fd and closes it.
func (r *Reactor) Register(fd int, interest EventType, cb Callback) (*Watch, error) {
	ev := unix.EpollEvent{Events: epollBits(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return nil, fmt.Errorf("epoll_ctl add fd %d: %w", fd, err)
	}
	w := &Watch{r: r, fd: fd, interest: interest, cb: cb}
	r.watches[fd] = w
	r.watchCount.Add(1)
	return w, nil
}

// Wake interrupts the loop from another thread so queued work runs.
func (r *Reactor) Wake() {
	var one = [8]byte{7: 1}
	unix.Write(r.wakeFD, one[:])
}

// Submit queues fn to run on the reactor's loop thread and wakes it.
func (r *Reactor) Submit(fn func()) {
	r.taskMu.Lock()
	r.tasks = append(r.tasks, fn)
	r.taskMu.Unlock()
	r.Wake()
}

// Stop asks the loop to exit after the current dispatch round.
func (r *Reactor) Stop() {
	r.stopRequested.Store(true)
	r.Wake()
}

// SetDraining flags the reactor for graceful shutdown: connection handlers
// close instead of re-arming for keep-alive once their in-flight
// request-response cycle completes.
func (r *Reactor) SetDraining() {
	r.draining.Store(true)
}

// Draining reports whether graceful drain was requested.
func (r *Reactor) Draining() bool {
	return r.draining.Load()
}

// WatchCount reports how many fds are currently registered. Safe to read
// from other threads; the pool polls it during graceful drain.
func (r *Reactor) WatchCount() int {
	return int(r.watchCount.Load())
}

// ResetAllWatches force-closes every registered fd. Must run on the loop
// thread; the pool submits it after the drain timeout elapses.
func (r *Reactor) ResetAllWatches() {
	pending := make([]*Watch, 0, len(r.watches))
	for _, w := range r.watches {
		pending = append(pending, w)
	}
	for _, w := range pending {
		w.Reset()
	}
}

func (r *Reactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakeFD, buf[:]); err != nil {
			return
		}
	}
}

func (r *Reactor) runTasks() {
	r.taskMu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.taskMu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

// Run executes the event loop until Stop. It locks the goroutine to its OS
// thread; connection state, arenas and the handler context all rely on that.
func (r *Reactor) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		n, err := unix.EpollWait(r.epfd, r.events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			ev := r.events[i]
			fd := int(ev.Fd)
			if fd == r.wakeFD {
				r.drainWake()
				continue
			}
			// Look the watch up per event: an earlier callback in this
			// batch may have reset it.
			w, ok := r.watches[fd]
			if !ok {
				continue
			}
			var delivered EventType
			if ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
				delivered |= Readable
			}
			if ev.Events&unix.EPOLLOUT != 0 {
				delivered |= Writable
			}
			if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				// Deliver as readable so the handler observes the error
				// from read() and tears the connection down.
				delivered |= Readable
			}
			w.invoke(delivered)
		}
		r.runTasks()
		if r.stopRequested.Load() {
			return
		}
	}
}

// Close releases the epoll and wake descriptors. Call after Run returns.
func (r *Reactor) Close() {
	unix.Close(r.wakeFD)
	unix.Close(r.epfd)
}

// Watch is a scoped fd registration. Destruction (Reset) unregisters the fd
// from the reactor and closes it; the connection owning the watch is torn
// down watch-first so no callback can fire into freed state.
type Watch struct {
	r        *Reactor
	fd       int
	interest EventType
	cb       Callback
	closed   bool
}

// FD returns the watched descriptor.
func (w *Watch) FD() int { return w.fd }

// Modify switches the interest set.
func (w *Watch) Modify(interest EventType) error {
	if w.closed {
		return unix.EBADF
	}
	if interest == w.interest {
		return nil
	}
	ev := unix.EpollEvent{Events: epollBits(interest), Fd: int32(w.fd)}
	if err := unix.EpollCtl(w.r.epfd, unix.EPOLL_CTL_MOD, w.fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl mod fd %d: %w", w.fd, err)
	}
	w.interest = interest
	return nil
}

// Reset unregisters and closes the fd. Idempotent.
func (w *Watch) Reset() {
	if w.closed {
		return
	}
	w.closed = true
	delete(w.r.watches, w.fd)
	w.r.watchCount.Add(-1)
	unix.EpollCtl(w.r.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
	unix.Close(w.fd)
	w.cb = nil
}

// Closed reports whether Reset has run.
func (w *Watch) Closed() bool { return w.closed }

func (w *Watch) invoke(ev EventType) {
	if w.closed || w.cb == nil {
		return
	}
	w.cb(ev)
}

// pinAndRun is the body of a pool worker: lock, pin, loop.
func (r *Reactor) pinAndRun(pin bool) {
	runtime.LockOSThread()
	if pin {
		if err := cpuinfo.PinThreadToCore(r.id % cpuinfo.CoreCount()); err != nil {
			// Affinity is advisory; keep running unpinned.
			_ = err
		}
	}
	r.Run()
}
