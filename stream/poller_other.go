//go:build !linux && !darwin

package stream

import "time"

// pollReadableFD is the portable fallback for platforms without epoll or
// kqueue support wired in: it cannot watch the fd directly, so it sleeps for
// the bounded period and lets the caller's next Read discover readability.
// Mirrors the teacher's FallbackPoller, which takes the same approach.
func pollReadableFD(fd int, timeout time.Duration) (bool, error) {
	if timeout > 0 {
		time.Sleep(timeout)
	}
	return true, nil
}
