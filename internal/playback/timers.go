package playback

import (
	"time"

	"github.com/clipset/clipview/internal/clock"
)

// timerName identifies one of the player's timers
type timerName string

const (
	timerHideControls  timerName = "hide-controls"
	timerFeedbackHide  timerName = "feedback-hide"
	timerFeedbackReset timerName = "feedback-reset"
)

type scheduledTimer struct {
	id       uint64
	timer    clock.Timer
	deadline time.Time
}

// timerRegistry owns every timer of one player. Each name has at most one
// live timer: scheduling cancels the previous one first. Callbacks are
// delivered through run, which serializes them with the other entry points.
// Must be used from inside run (or before any timer is armed).
type timerRegistry struct {
	clock  clock.Clock
	run    func(func())
	seq    uint64
	active map[timerName]*scheduledTimer
}

func newTimerRegistry(c clock.Clock, run func(func())) *timerRegistry {
	return &timerRegistry{
		clock:  c,
		run:    run,
		active: make(map[timerName]*scheduledTimer),
	}
}

// schedule arms name to call fn after d, replacing any pending timer of the same name
func (r *timerRegistry) schedule(name timerName, d time.Duration, fn func()) {
	r.cancel(name)

	r.seq++
	id := r.seq
	entry := &scheduledTimer{
		id:       id,
		deadline: r.clock.Now().Add(d),
	}
	entry.timer = r.clock.AfterFunc(d, func() {
		r.run(func() {
			// A timer that was cancelled or replaced after it started firing
			// must not run.
			current, ok := r.active[name]
			if !ok || current.id != id {
				return
			}
			delete(r.active, name)
			fn()
		})
	})
	r.active[name] = entry
}

func (r *timerRegistry) cancel(name timerName) {
	entry, ok := r.active[name]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(r.active, name)
}

func (r *timerRegistry) cancelAll() {
	for name := range r.active {
		r.cancel(name)
	}
}

func (r *timerRegistry) pending(name timerName) bool {
	_, ok := r.active[name]
	return ok
}

// deadline returns when name fires, or the zero time if it is not pending
func (r *timerRegistry) deadline(name timerName) time.Time {
	if entry, ok := r.active[name]; ok {
		return entry.deadline
	}
	return time.Time{}
}

func (r *timerRegistry) size() int {
	return len(r.active)
}
