// Package debounce defers an action until a quiet period has passed since the
// last trigger.
package debounce

import (
	"sync"
	"time"
)

type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	idle    *sync.Cond
	timer   *time.Timer
	fn      func()
	gen     uint64
	running int
}

func New(delay time.Duration) *Debouncer {
	d := &Debouncer{delay: delay}
	d.idle = sync.NewCond(&d.mu)

	return d
}

// Trigger schedules fn after the quiet period, cancelling any pending action.
// fn runs on its own goroutine.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.fn = fn

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.timer = nil
			d.running++
		}
		d.mu.Unlock()

		// a timer that fired while being superseded must not run
		if !current {
			return
		}

		defer d.done()
		fn()
	})
}

func (d *Debouncer) done() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.running--
	d.idle.Broadcast()
}

// Stop cancels the pending action and reports whether there was one.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++

	if d.timer == nil {
		return false
	}

	stopped := d.timer.Stop()
	d.timer = nil

	return stopped
}

// Flush runs the pending action right away on the calling goroutine, or waits
// for an action that already started. It returns once no action is in flight.
func (d *Debouncer) Flush() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.gen++
		fn := d.fn
		d.mu.Unlock()

		fn()
		return
	}

	for d.running > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}
