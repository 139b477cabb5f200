package calculator

import (
	"sync"
	"time"
)

// Draft is the input state of one purchase being composed.
//
// Every edit cancels the pending reconciliation and schedules a new one after
// the debounce window. The pass reads the field values current when the
// window elapses. At most one reconciliation is pending at any time.
type Draft struct {
	mu       sync.Mutex
	fields   Fields
	window   time.Duration
	timer    *time.Timer
	seq      uint64
	edits    uint64
	closed   bool
	onDerive func(Result)
}

// DraftOption configures a Draft.
type DraftOption func(*Draft)

// WithOnDerive registers a callback run after every reconciliation pass,
// including passes that derived nothing. It runs outside the draft lock.
func WithOnDerive(fn func(Result)) DraftOption {
	return func(d *Draft) {
		d.onDerive = fn
	}
}

// WithFields seeds the draft.
func WithFields(f Fields) DraftOption {
	return func(d *Draft) {
		d.fields = f
	}
}

// NewDraft creates an empty draft. A window <= 0 reconciles synchronously on
// every edit.
func NewDraft(window time.Duration, opts ...DraftOption) *Draft {
	d := &Draft{window: window}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Set records an edit and (re)schedules reconciliation.
// It returns false when the field is unknown or the draft is closed.
func (d *Draft) Set(field Field, value string) bool {
	if field == FieldNone {
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.fields.Set(field, value)
	d.edits++
	d.cancelLocked()

	if d.window <= 0 {
		res := d.reconcileLocked()
		cb := d.onDerive
		d.mu.Unlock()
		if cb != nil {
			cb(res)
		}
		return true
	}

	seq := d.seq
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
	d.mu.Unlock()
	return true
}

// Fields returns a copy of the current values.
func (d *Draft) Fields() Fields {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields
}

// Pending reports whether a reconciliation is scheduled.
func (d *Draft) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush runs a pending reconciliation now. Without pending work the current
// fields are returned unchanged.
func (d *Draft) Flush() Result {
	res, _ := d.Snapshot()
	return res
}

// Snapshot is Flush that also returns the edit count the result reflects,
// for a later ResetIfUnchanged.
func (d *Draft) Snapshot() (Result, uint64) {
	d.mu.Lock()
	if d.closed || d.timer == nil {
		res := Result{Fields: d.fields}
		edits := d.edits
		d.mu.Unlock()
		return res, edits
	}
	d.cancelLocked()
	res := d.reconcileLocked()
	edits := d.edits
	cb := d.onDerive
	d.mu.Unlock()

	if cb != nil {
		cb(res)
	}
	return res, edits
}

// Reset empties the draft and drops pending work. Used after a cancel.
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// ResetIfUnchanged resets the draft only when nothing was edited since the
// Snapshot that returned edits. It reports whether the draft was reset.
func (d *Draft) ResetIfUnchanged(edits uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.edits != edits {
		return false
	}
	d.resetLocked()
	return true
}

// Close tears the draft down. Pending work never runs and later edits are
// ignored.
func (d *Draft) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}

func (d *Draft) fire(seq uint64) {
	d.mu.Lock()
	// A newer edit, a flush or a close superseded this timer.
	if d.closed || seq != d.seq || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	res := d.reconcileLocked()
	cb := d.onDerive
	d.mu.Unlock()

	if cb != nil {
		cb(res)
	}
}

func (d *Draft) resetLocked() {
	d.cancelLocked()
	d.fields = Fields{}
	d.edits++
}

func (d *Draft) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

func (d *Draft) reconcileLocked() Result {
	res := Reconcile(d.fields)
	d.fields = res.Fields
	return res
}
