package persistence

import (
	"context"
	"time"

	"github.com/markusressel/boiler2go/internal/ui"
)

// Flusher coalesces save requests. Marks arriving within one delay window
// result in a single flush at the end of that window.
type Flusher struct {
	delay time.Duration
	flush func() error
	dirty chan struct{}
}

func NewFlusher(delay time.Duration, flush func() error) *Flusher {
	return &Flusher{
		delay: delay,
		flush: flush,
		dirty: make(chan struct{}, 1),
	}
}

// MarkDirty requests a flush, it never blocks
func (f *Flusher) MarkDirty() {
	select {
	case f.dirty <- struct{}{}:
	default:
	}
}

// Run executes pending flushes until the context is cancelled.
// A flush that is still pending at shutdown is executed before returning.
func (f *Flusher) Run(ctx context.Context) error {
	var timer *time.Timer
	var timerC <-chan time.Time
	pending := false

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			select {
			case <-f.dirty:
				pending = true
			default:
			}
			if pending {
				f.execute()
			}
			return nil
		case <-f.dirty:
			pending = true
			if timer == nil {
				timer = time.NewTimer(f.delay)
				timerC = timer.C
			}
		case <-timerC:
			timer = nil
			timerC = nil
			pending = false
			f.execute()
		}
	}
}

func (f *Flusher) execute() {
	if err := f.flush(); err != nil {
		ui.Error("Unable to persist state: %v", err)
	}
}
