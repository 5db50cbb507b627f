package breach

import (
	"context"
	"sync"
	"time"
)

// DefaultQuiet is the input-inactivity window before a check is issued.
const DefaultQuiet = 800 * time.Millisecond

// Debouncer serializes breach checks behind a quiet period so rapid
// input does not flood the range service. Only the most recent
// submission's result is ever applied: a newer Submit cancels any
// pending timer and invalidates any in-flight lookup before its result
// lands.
type Debouncer struct {
	advisor *Advisor
	quiet   time.Duration

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewDebouncer wraps an Advisor. quiet <= 0 selects DefaultQuiet.
func NewDebouncer(advisor *Advisor, quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{advisor: advisor, quiet: quiet}
}

// Submit schedules a check for password after the quiet period. apply is
// invoked with the result only if no newer submission has happened in
// the meantime. apply runs on the debouncer's own goroutine and must not
// call back into Submit or Stop.
func (d *Debouncer) Submit(password string, apply func(Result)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		d.cancel = cancel
		d.mu.Unlock()

		res := d.advisor.Check(ctx, password)

		d.mu.Lock()
		defer d.mu.Unlock()
		// A newer submission may have started while the request was in
		// flight; its generation wins and this result is discarded.
		if gen != d.gen {
			return
		}
		d.cancel = nil
		apply(res)
	})
}

// Stop cancels any pending or in-flight check. Results of cancelled
// checks are never applied.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
