//go:build linux

package socket

import (
	"golang.org/x/sys/unix"
)

// ReserveFD holds one descriptor open to /dev/null so the accept loop can
// recover from EMFILE. When accept fails with the per-process fd limit we
// close the reserve (freeing one slot), accept and immediately close one
// pending connection (draining the backlog and signaling the client), then
// reopen the reserve. Without this the backlog stays permanently full at the
// fd limit. One ReserveFD exists per reactor worker.
type ReserveFD struct {
	fd int
}

// NewReserveFD opens the reserve slot.
func NewReserveFD() *ReserveFD {
	r := &ReserveFD{fd: -1}
	r.reopen()
	return r
}

func (r *ReserveFD) reopen() {
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		r.fd = -1
		return
	}
	r.fd = fd
}

// HandleEMFILE performs the reserve-descriptor dance against listenerFD.
// Reports whether a recovery was performed.
func (r *ReserveFD) HandleEMFILE(listenerFD int) bool {
	if r.fd < 0 {
		return false
	}
	unix.Close(r.fd)
	r.fd = -1

	connFD, _, err := unix.Accept4(listenerFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err == nil {
		unix.Close(connFD)
	}

	r.reopen()
	return true
}

// Close releases the reserve slot.
func (r *ReserveFD) Close() {
	if r.fd >= 0 {
		unix.Close(r.fd)
		r.fd = -1
	}
}
