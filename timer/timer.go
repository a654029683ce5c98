package timer

// Timer is a one-shot or auto-restarting deadline, sampled via HasExpired.
// period == 0 means "disarmed": HasExpired always reports false. Adapted
// from the teacher's KeepAliveConfig naming (Interval/Timeout) but
// redesigned per §9's "process-wide init/deinit" note and §5's
// single-threaded cooperative model: no goroutine, no channel, no
// time.Ticker - a Timer only ever changes state when HasExpired or Reset is
// called from inside the owning endpoint's task step.
type Timer struct {
	periodMs  uint64
	autoReset bool
	expiresAt uint64
	armed     bool
}

// Start arms the timer for periodMs milliseconds from now. If autoRestart,
// HasExpired rearms it for another period each time it fires instead of
// leaving it expired. periodMs == 0 disarms the timer (Start with 0 is
// equivalent to Stop).
func Start(periodMs uint64, autoRestart bool) Timer {
	t := Timer{periodMs: periodMs, autoReset: autoRestart}
	if periodMs == 0 {
		return t
	}
	t.armed = true
	t.expiresAt = NowMs() + periodMs
	return t
}

// Reset retriggers the timer from now using its existing period, per §4.5
// ("advances expiration by (previous period) without changing period").
// A no-op on a disarmed (period == 0) timer.
func (t *Timer) Reset() {
	if t.periodMs == 0 {
		return
	}
	t.armed = true
	t.expiresAt = NowMs() + t.periodMs
}

// Stop disarms the timer; subsequent HasExpired calls return false until
// Start or Reset rearms it.
func (t *Timer) Stop() {
	t.armed = false
}

// Armed reports whether the timer is currently running.
func (t *Timer) Armed() bool { return t.armed }

// Period returns the timer's configured period in milliseconds.
func (t *Timer) Period() uint64 { return t.periodMs }

// HasExpired reports whether now has passed the timer's expiration. Uses
// unsigned subtraction so a wrapped monotonic counter is still handled
// correctly, per §4.5. If the timer auto-restarts, a true result also
// rearms it for the next period.
func (t *Timer) HasExpired(nowMs uint64) bool {
	if !t.armed {
		return false
	}
	if nowMs-t.expiresAt > 1<<63 {
		// nowMs - t.expiresAt wrapped negative (nowMs < expiresAt): not
		// expired yet.
		return false
	}
	if t.autoReset {
		t.expiresAt += t.periodMs
		// If multiple periods elapsed (e.g. the caller stalled), resync to
		// now rather than firing a burst of catch-up expirations.
		if nowMs-t.expiresAt < 1<<63 {
			t.expiresAt = nowMs + t.periodMs
		}
	} else {
		t.armed = false
	}
	return true
}
