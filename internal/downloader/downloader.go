// Package downloader implements the transfer backends that fetch a source
// locator to local storage, reporting rate-limited progress snapshots.
package downloader

import (
	"time"
)

// StatusFunc receives a rendered status string. Backends invoke it at most
// once per status interval; zero calls are permitted for instantaneous
// transfers.
type StatusFunc func(text string)

// StatusInterval is the minimum window between two progress reports.
const StatusInterval = 2 * time.Second

type throttle struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func newThrottle(interval time.Duration) *throttle {
	if interval <= 0 {
		interval = StatusInterval
	}
	return &throttle{interval: interval, now: time.Now}
}

// ready reports whether a full interval has passed since the last fire,
// consuming the window when it has.
func (t *throttle) ready() bool {
	now := t.now()
	if now.Sub(t.last) >= t.interval {
		t.last = now
		return true
	}
	return false
}
