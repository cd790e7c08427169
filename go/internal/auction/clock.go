package auction

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// turnClock is the cancellable handle for one turn's countdown. Each tick
// calls back into the engine, which drops ticks from a handle that is no
// longer the auction's current one.
type turnClock struct {
	ticker  clockwork.Ticker
	done    chan struct{}
	stopped bool
}

func startTurnClock(clock clockwork.Clock, interval time.Duration, onTick func(*turnClock)) *turnClock {
	tc := &turnClock{
		ticker: clock.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-tc.ticker.Chan():
				onTick(tc)
			case <-tc.done:
				return
			}
		}
	}()
	return tc
}

// stop cancels the countdown. Must be called with the engine lock held.
func (tc *turnClock) stop() {
	if tc == nil || tc.stopped {
		return
	}
	tc.stopped = true
	tc.ticker.Stop()
	close(tc.done)
}

// deadlineTimer ends an auction at its end time even when no turn is
// ticking.
type deadlineTimer struct {
	timer   clockwork.Timer
	done    chan struct{}
	stopped bool
}

func startDeadlineTimer(clock clockwork.Clock, d time.Duration, onFire func(*deadlineTimer)) *deadlineTimer {
	dt := &deadlineTimer{
		timer: clock.NewTimer(d),
		done:  make(chan struct{}),
	}
	go func() {
		select {
		case <-dt.timer.Chan():
			onFire(dt)
		case <-dt.done:
		}
	}()
	return dt
}

func (dt *deadlineTimer) stop() {
	if dt == nil || dt.stopped {
		return
	}
	dt.stopped = true
	stopAndDrainTimer(dt.timer)
	close(dt.done)
}

// stopAndDrainTimer stops a timer and drains its channel so a pending
// expiry is not observed later.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
