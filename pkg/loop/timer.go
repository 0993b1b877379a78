package loop

import (
	"sync"
	"time"
)

// Timer is a cancelable one-shot deferred call whose callback runs on
// the loop. Canceling before expiry guarantees the callback never runs,
// even if the underlying timer has already fired and the callback is
// waiting in the dispatch queue.
type Timer struct {
	mu       sync.Mutex
	canceled bool
	fired    bool
	t        *time.Timer
}

// Schedule arms a timer that runs fn on the loop after d. A
// non-positive d still defers fn to the loop (it never runs inline).
func (l *Loop) Schedule(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	fire := func() {
		l.Dispatch(func() {
			tm.mu.Lock()
			if tm.canceled {
				tm.mu.Unlock()
				return
			}
			tm.fired = true
			tm.mu.Unlock()
			fn()
		})
	}
	if d <= 0 {
		fire()
	} else {
		tm.t = time.AfterFunc(d, fire)
	}
	return tm
}

// Cancel stops the timer. Returns true if the callback had not run yet
// and is now guaranteed never to run.
func (tm *Timer) Cancel() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.fired || tm.canceled {
		return false
	}
	tm.canceled = true
	if tm.t != nil {
		tm.t.Stop()
	}
	return true
}

// Live reports whether the timer is still pending (not fired, not
// canceled).
func (tm *Timer) Live() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return !tm.fired && !tm.canceled
}
