package client

import (
	"sync"
	"time"

	"github.com/target/ticketflow/internal/observability/metrics"
)

// DefaultToastDuration is how long a notification stays up.
const DefaultToastDuration = 5 * time.Second

// ToastKind styles a notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is one transient notification. ID increases with every Show.
type Toast struct {
	ID   uint64
	Text string
	Kind ToastKind
}

// Toaster is a single-slot notification channel: the latest Show wins and a
// superseded timer can never clear a newer message.
type Toaster struct {
	clock    Clock
	duration time.Duration
	metrics  *metrics.Collector

	mu       sync.Mutex
	current  *Toast
	timer    Timer
	seq      uint64
	onChange func()
}

// NewToaster creates a Toaster. A nil clock uses RealClock; a non-positive
// duration uses DefaultToastDuration.
func NewToaster(clock Clock, duration time.Duration, m *metrics.Collector) *Toaster {
	if clock == nil {
		clock = RealClock{}
	}
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &Toaster{clock: clock, duration: duration, metrics: m}
}

// Show replaces any visible message and restarts the dismiss timer.
func (t *Toaster) Show(text string, kind ToastKind) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	id := t.seq
	t.current = &Toast{ID: id, Text: text, Kind: kind}
	t.timer = t.clock.AfterFunc(t.duration, func() { t.expire(id) })
	hook := t.onChange
	t.mu.Unlock()

	t.metrics.RecordToast(string(kind))
	if hook != nil {
		hook()
	}
}

// Success shows a success message.
func (t *Toaster) Success(text string) { t.Show(text, ToastSuccess) }

// Error shows an error message.
func (t *Toaster) Error(text string) { t.Show(text, ToastError) }

func (t *Toaster) expire(id uint64) {
	t.mu.Lock()
	if t.current == nil || t.current.ID != id {
		t.mu.Unlock()
		return
	}
	t.current = nil
	t.timer = nil
	hook := t.onChange
	t.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Dismiss clears the message immediately.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.current = nil
	hook := t.onChange
	t.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Current returns the visible message, if any.
func (t *Toaster) Current() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Toast{}, false
	}
	return *t.current, true
}

// Close stops a pending timer.
func (t *Toaster) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.onChange = nil
}

func (t *Toaster) setOnChange(f func()) {
	t.mu.Lock()
	t.onChange = f
	t.mu.Unlock()
}
