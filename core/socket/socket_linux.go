//go:build linux

// Package socket wraps non-blocking TCP file descriptors for the reactor
// plane. Everything here speaks raw fds through golang.org/x/sys/unix; the
// net package never touches the hot path.
package socket

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// TCPSocket is a non-blocking connected TCP socket.
type TCPSocket struct {
	fd int
}

// FromFD wraps an already-accepted non-blocking fd.
func FromFD(fd int) TCPSocket {
	return TCPSocket{fd: fd}
}

// FD returns the underlying descriptor.
func (s TCPSocket) FD() int { return s.fd }

// Read reads into p. Returns (0, io.EOF) on orderly peer shutdown and
// unix.EAGAIN when the socket would block.
func (s TCPSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes p. Returns unix.EAGAIN when the send buffer is full.
func (s TCPSocket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the descriptor.
func (s TCPSocket) Close() error {
	return unix.Close(s.fd)
}

// SetNoDelay disables Nagle's algorithm.
func (s TCPSocket) SetNoDelay() error {
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

// Listener is a non-blocking listening TCP socket.
type Listener struct {
	fd   int
	port int
}

// ListenConfig controls listener socket options.
type ListenConfig struct {
	Port      int
	Backlog   int
	ReusePort bool
}

// Listen opens a non-blocking IPv4 listener on cfg.Port. With ReusePort set,
// multiple listeners may bind the same port and the kernel fans accepted
// connections out across them.
func Listen(cfg ListenConfig) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if cfg.ReusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("setsockopt SO_REUSEPORT: %w", err)
		}
	}
	addr := &unix.SockaddrInet4{Port: cfg.Port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind port %d: %w", cfg.Port, err)
	}
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = 1024
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Listener{fd: fd, port: cfg.Port}, nil
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Port returns the bound port.
func (l *Listener) Port() int { return l.port }

// Accept accepts one pending connection non-blockingly. The returned fd is
// already SOCK_NONBLOCK|SOCK_CLOEXEC. Returns unix.EAGAIN when the backlog
// is drained.
func (l *Listener) Accept() (int, error) {
	fd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// Close closes the listening descriptor.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}
