package session

import (
	"sync"
	"time"
)

// ClockState enumerates the countdown state machine.
type ClockState string

const (
	ClockIdle      ClockState = "IDLE"
	ClockArmed     ClockState = "ARMED"
	ClockExpired   ClockState = "EXPIRED"
	ClockCancelled ClockState = "CANCELLED"
)

// Clock is the per-session countdown: Idle → Armed → {Expired | Cancelled}.
// Remaining seconds only ever decrease. The timeout callback fires exactly
// once, from the tick that reaches zero; once Expired or Cancelled the
// clock cannot be restarted.
type Clock struct {
	mu        sync.Mutex
	state     ClockState
	remaining int
	interval  time.Duration
	onTimeout func()
	stop      chan struct{}
}

// NewClock creates an idle clock. interval is the wall-clock tick step
// (one second in production); onTimeout may be nil.
func NewClock(interval time.Duration, onTimeout func()) *Clock {
	return &Clock{
		state:     ClockIdle,
		interval:  interval,
		onTimeout: onTimeout,
	}
}

// Arm transitions Idle→Armed, sets the remaining seconds and starts the
// countdown goroutine. A no-op once the clock has ever left Idle.
func (c *Clock) Arm(durationSeconds int) {
	c.mu.Lock()
	if c.state != ClockIdle || durationSeconds <= 0 {
		c.mu.Unlock()
		return
	}
	c.state = ClockArmed
	c.remaining = durationSeconds
	c.stop = make(chan struct{})
	c.mu.Unlock()

	go c.run()
}

func (c *Clock) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if done := c.Tick(); done {
				return
			}
		}
	}
}

// Tick performs one countdown step. It is a pure local state transition:
// it never blocks on anything external. Returns true once the clock is
// no longer armed, so redundant ticks after expiry are no-ops.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	if c.state != ClockArmed {
		c.mu.Unlock()
		return true
	}

	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return false
	}

	c.remaining = 0
	c.state = ClockExpired
	fire := c.onTimeout
	c.mu.Unlock()

	// The Armed→Expired transition above happens at most once, so the
	// timeout signal is emitted at most once.
	if fire != nil {
		fire()
	}
	return true
}

// Cancel transitions Armed→Cancelled (manual submit or abandon). No
// further decrements occur and no timeout signal is emitted. A no-op in
// any other state.
func (c *Clock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ClockArmed {
		return
	}
	c.state = ClockCancelled
	close(c.stop)
}

// Remaining returns the remaining whole seconds.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// State returns the current clock state.
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Expired reports whether the countdown has run out. The latch never
// resets within a session's lifetime.
func (c *Clock) Expired() bool {
	return c.State() == ClockExpired
}
