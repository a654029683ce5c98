//go:build darwin

package stream

import (
	"syscall"
	"time"
)

// pollReadableFD blocks for up to timeout waiting for fd to become readable,
// using a one-shot kqueue instance. Adapted from the teacher's KqueuePoller,
// narrowed to a single fd and a single wait.
func pollReadableFD(fd int, timeout time.Duration) (bool, error) {
	kq, err := syscall.Kqueue()
	if err != nil {
		return false, err
	}
	defer syscall.Close(kq)

	changes := []syscall.Kevent_t{{
		Ident:  uint64(fd),
		Filter: syscall.EVFILT_READ,
		Flags:  syscall.EV_ADD | syscall.EV_ENABLE,
	}}
	if _, err := syscall.Kevent(kq, changes, nil, nil); err != nil {
		return false, err
	}

	var ts *syscall.Timespec
	if timeout >= 0 {
		t := syscall.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	events := make([]syscall.Kevent_t, 1)
	n, err := syscall.Kevent(kq, nil, events, ts)
	if err != nil {
		if err == syscall.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}
