// Package timer implements the monotonic clock and one-shot/auto-restart
// timers described in §4.5: keepalive and response-deadline timing for both
// endpoints, sampled - never waited on - from inside a task step.
package timer

import "time"

// monotonicStart anchors NowMs's return value; only the delta since process
// start is ever observed, so wall-clock skew never affects a timer.
var monotonicStart = time.Now()

// NowMs returns a monotonically non-decreasing millisecond counter. It need
// not track wall-clock time - only that it never decreases, per §4.5.
func NowMs() uint64 {
	return uint64(time.Since(monotonicStart).Milliseconds())
}
