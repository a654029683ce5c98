package stream

import (
	"net"
	"syscall"
)

// fdOf extracts the raw file descriptor backing conn, for handing to the
// platform poller. Adapted from the teacher's connection-pool poller, which
// resolves one fd per tracked connection the same way; here there is only
// ever one fd per Socket.
func fdOf(conn net.Conn) (int, error) {
	type syscallConn interface {
		SyscallConn() (syscall.RawConn, error)
	}

	sc, ok := conn.(syscallConn)
	if !ok {
		return -1, syscall.ENOTSUP
	}

	rawConn, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	var fd int
	var ctrlErr error
	err = rawConn.Control(func(fdPtr uintptr) {
		fd = int(fdPtr)
	})
	if err != nil {
		return -1, err
	}
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}
