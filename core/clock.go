package core

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Clock returns the current time. Messages take their default
// timestamp from a Clock.
type Clock func() time.Time

// SystemClock reads time.Now on every call
func SystemClock() time.Time {
	return time.Now()
}

var (
	coarseClockOnce sync.Once
	coarseNow       atomic.Pointer[time.Time]
)

// StartCoarseClock starts the background goroutine that caches
// time.Now() every 500µs. It is safe to call multiple times; the
// goroutine is started exactly once and runs for the lifetime of the
// process.
func StartCoarseClock() {
	coarseClockOnce.Do(func() {
		t := time.Now()
		coarseNow.Store(&t)
		go func() {
			ticker := time.NewTicker(500 * time.Microsecond)
			for range ticker.C {
				t := time.Now()
				coarseNow.Store(&t)
			}
		}()
	})
}

// CoarseClock returns the most recently cached time, starting the
// coarse clock on first use. Timestamps may lag by up to 500µs.
func CoarseClock() time.Time {
	if t := coarseNow.Load(); t != nil {
		return *t
	}
	StartCoarseClock()
	return *coarseNow.Load()
}

// ParseClock returns the clock named by s: "system" (or empty) or "coarse"
func ParseClock(s string) (Clock, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "system":
		return SystemClock, nil
	case "coarse":
		return CoarseClock, nil
	default:
		return nil, errors.Errorf("unknown clock %q", s)
	}
}
