package hook

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/axmq/lwmqtt/wire"
)

// slidingWindow tracks a single remote address's CONNECT attempts within
// the current window, grounded on the teacher's rateLimiter struct.
type slidingWindow struct {
	count       int
	windowStart time.Time
}

// RateLimitHook refuses CONNECTs from a remote address once it exceeds
// maxConnects within window, per §4.7 ("once the window's budget is
// exhausted, further CONNECTs from that address are refused with
// ServerUnavailable until the window rolls over"). Unlike the teacher's
// RateLimitHook, expiry is swept lazily on access rather than by a
// self-perpetuating background timer, keeping the hook free of its own
// goroutines.
type RateLimitHook struct {
	*Base
	mu          sync.Mutex
	limiters    map[string]*slidingWindow
	maxConnects int
	window      time.Duration
}

// NewRateLimitHook returns a RateLimitHook allowing up to maxConnects
// CONNECTs per remote address every window.
func NewRateLimitHook(maxConnects int, window time.Duration) *RateLimitHook {
	return &RateLimitHook{
		Base:        NewBase("rate-limit"),
		limiters:    make(map[string]*slidingWindow),
		maxConnects: maxConnects,
		window:      window,
	}
}

func remoteKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func (h *RateLimitHook) Admit(_ context.Context, req ConnectRequest) (wire.ConnAckCode, error) {
	key := remoteKey(req.RemoteAddr)
	if key == "" || h.maxConnects <= 0 {
		return wire.Accepted, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	w, exists := h.limiters[key]
	if !exists || now.Sub(w.windowStart) > h.window {
		h.limiters[key] = &slidingWindow{count: 1, windowStart: now}
		return wire.Accepted, nil
	}

	w.count++
	if w.count > h.maxConnects {
		return wire.ServerUnavailable, nil
	}
	return wire.Accepted, nil
}

// Reset clears tracked state for key, allowing its window to restart.
func (h *RateLimitHook) Reset(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.limiters, key)
}

// ActiveWindows returns the number of remote addresses currently tracked.
func (h *RateLimitHook) ActiveWindows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}
