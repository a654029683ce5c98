//go:build linux

package stream

import (
	"syscall"
	"time"
)

// pollReadableFD blocks for up to timeout waiting for fd to become readable,
// using a one-shot epoll instance. Adapted from the teacher's EpollPoller,
// narrowed from a multi-connection event loop to a single-fd bounded wait -
// the shape §4.1 of the spec calls for behind Socket.PollReadable.
func pollReadableFD(fd int, timeout time.Duration) (bool, error) {
	epfd, err := syscall.EpollCreate1(syscall.EPOLL_CLOEXEC)
	if err != nil {
		return false, err
	}
	defer syscall.Close(epfd)

	event := syscall.EpollEvent{
		Events: syscall.EPOLLIN,
		Fd:     int32(fd),
	}
	if err := syscall.EpollCtl(epfd, syscall.EPOLL_CTL_ADD, fd, &event); err != nil {
		return false, err
	}

	events := make([]syscall.EpollEvent, 1)
	ms := int(timeout.Milliseconds())
	if timeout < 0 {
		ms = -1
	}

	n, err := syscall.EpollWait(epfd, events, ms)
	if err != nil {
		if err == syscall.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}
