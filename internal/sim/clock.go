package sim

import (
	"fmt"
	"time"
)

// ClockState is the lifecycle state of a session countdown.
type ClockState int

const (
	ClockRunning ClockState = iota
	ClockPaused
	ClockExpired
)

// String returns the lowercase state name.
func (s ClockState) String() string {
	switch s {
	case ClockRunning:
		return "running"
	case ClockPaused:
		return "paused"
	case ClockExpired:
		return "expired"
	}
	return "unknown"
}

// Clock is a countdown timer with pause/resume and one-shot expiry.
// It is not goroutine-safe; the engine serializes access.
type Clock struct {
	state     ClockState
	remaining int
}

// NewClock creates a running clock with the given duration.
func NewClock(d time.Duration) *Clock {
	return &Clock{
		state:     ClockRunning,
		remaining: int(d.Seconds()),
	}
}

// Tick advances the clock by one second. It decrements only while running,
// and returns true exactly once: on the tick that reaches zero. After expiry
// further ticks are no-ops.
func (c *Clock) Tick() bool {
	if c.state != ClockRunning {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = ClockExpired
		return true
	}
	return false
}

// TogglePause flips between running and paused. Expired is terminal.
// Returns true if the clock is paused after the call.
func (c *Clock) TogglePause() bool {
	switch c.state {
	case ClockRunning:
		c.state = ClockPaused
	case ClockPaused:
		c.state = ClockRunning
	}
	return c.state == ClockPaused
}

// State returns the current clock state.
func (c *Clock) State() ClockState { return c.state }

// Remaining returns the seconds left on the clock.
func (c *Clock) Remaining() int { return c.remaining }

// FormatClock renders seconds as m:ss, minutes unpadded: 90 -> "1:30".
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
