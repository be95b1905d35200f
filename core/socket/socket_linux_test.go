//go:build linux

package socket

import (
	"errors"
	"io"
	"testing"

	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (TCPSocket, TCPSocket) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	return FromFD(fds[0]), FromFD(fds[1])
}

func TestReadWrite(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	defer b.Close()

	if _, err := a.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("read = %q, %v", buf[:n], err)
	}
}

func TestReadWouldBlock(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	defer b.Close()

	buf := make([]byte, 16)
	_, err := a.Read(buf)
	if !errors.Is(err, unix.EAGAIN) {
		t.Fatalf("expected EAGAIN, got %v", err)
	}
}

func TestReadEOFOnPeerClose(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()

	b.Close()
	buf := make([]byte, 16)
	_, err := a.Read(buf)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestListenAndAcceptDrained(t *testing.T) {
	l, err := Listen(ListenConfig{Port: 0, Backlog: 8})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	// Nothing pending: non-blocking accept reports EAGAIN.
	if _, err := l.Accept(); !errors.Is(err, unix.EAGAIN) {
		t.Fatalf("expected EAGAIN, got %v", err)
	}
}

func TestReservedFDRecovery(t *testing.T) {
	r := NewReserveFD()
	defer r.Close()

	l, err := Listen(ListenConfig{Port: 0, Backlog: 8})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	// No pending connection to drain, but the dance itself must succeed
	// and leave the reserve slot re-armed.
	if !r.HandleEMFILE(l.FD()) {
		t.Fatal("recovery reported failure")
	}
	if !r.HandleEMFILE(l.FD()) {
		t.Fatal("reserve was not reopened after first recovery")
	}
}
