package wizard

import (
	"sync"
	"time"
)

// debounceTimer is a single re-armable timer with a generation counter. Arm
// replaces any pending fire (sliding window); a callback from a superseded or
// stopped timer detects it and no-ops, so a late fire can never act on a
// torn-down session.
type debounceTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
	fire    func()
}

func newDebounceTimer(fire func()) *debounceTimer {
	return &debounceTimer{fire: fire}
}

// Arm schedules the callback after delay, cancelling any pending fire.
func (d *debounceTimer) Arm(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		current := !d.stopped && gen == d.gen
		d.mu.Unlock()
		if current {
			d.fire()
		}
	})
}

// Cancel drops any pending fire without stopping the timer for good.
func (d *debounceTimer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Stop cancels permanently. Used on session teardown.
func (d *debounceTimer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
