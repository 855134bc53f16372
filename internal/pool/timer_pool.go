// Package pool provides pooled time.Timer instances for the engine's
// timeout-bounded waits (close joins, drain waits in tests).
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer set to fire after d, reusing a pooled timer when
// one is available.
//
// Return the timer to the pool with PutTimer when done.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // only *time.Timer values are ever pooled
		if t.Reset(d) {
			// The timer was still active; drain a possibly pending tick.
			select {
			case <-t.C:
			default:
			}
		}

		return t
	}

	return time.NewTimer(d)
}

// PutTimer stops t and returns it to the pool.
//
// t must not be used after PutTimer returns.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// The timer already fired; drain the tick the caller never consumed.
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
