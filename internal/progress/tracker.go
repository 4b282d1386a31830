// Package progress implements the Progress Tracker: a mutex-guarded 0-100
// progress/status pair with an optional callback, plus a child tracker that
// rescales its updates into a sub-range of its parent — grounded on
// original_source/src/progress/tracker.rs's ProgressTracker/ChildProgressTracker.
package progress

import "sync"

// Callback receives progress updates: a percentage in [0, 100] and a
// human-readable phase/status label.
type Callback func(percent float32, status string)

// Tracker holds the current progress and status, invoking its callback (if
// set) on every update.
type Tracker struct {
	mu       sync.Mutex
	percent  float32
	status   string
	callback Callback
}

// New creates a Tracker with no callback.
func New() *Tracker {
	return &Tracker{}
}

// WithCallback creates a Tracker that invokes cb on every Update.
func WithCallback(cb Callback) *Tracker {
	return &Tracker{callback: cb}
}

// SetCallback attaches or replaces the tracker's callback.
func (t *Tracker) SetCallback(cb Callback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = cb
}

// Update clamps percent to [0, 100], records it alongside status, and
// invokes the callback if one is set.
func (t *Tracker) Update(percent float32, status string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	t.percent = percent
	t.status = status
	cb := t.callback
	t.mu.Unlock()

	if cb != nil {
		cb(percent, status)
	}
}

// Percent returns the last recorded progress percentage.
func (t *Tracker) Percent() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Status returns the last recorded status label.
func (t *Tracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Child returns a ChildTracker that rescales its own [0, 100] updates into
// [start, end] of t, so a subroutine can report its own internal progress
// without knowing where it sits in the overall pipeline.
func (t *Tracker) Child(start, end float32) *ChildTracker {
	return &ChildTracker{parent: t, start: start, end: end}
}

// ChildTracker forwards rescaled updates to a parent Tracker.
type ChildTracker struct {
	parent     *Tracker
	start, end float32
}

// Update clamps percent to [0, 100], maps it linearly into the child's
// [start, end] range, and forwards it to the parent tracker.
func (c *ChildTracker) Update(percent float32, status string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	parentPercent := c.start + (c.end-c.start)*percent/100
	c.parent.Update(parentPercent, status)
}
