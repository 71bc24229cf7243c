package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clipset/clipview/internal/clock"
)

func TestTimerRegistry_ReplaceByName(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	r := newTimerRegistry(clk, func(fn func()) { fn() })

	var fired []string
	r.schedule(timerFeedbackHide, time.Second, func() { fired = append(fired, "first") })
	r.schedule(timerFeedbackHide, 2*time.Second, func() { fired = append(fired, "second") })

	assert.Equal(t, 1, clk.Pending())
	assert.Equal(t, time.Unix(2, 0), r.deadline(timerFeedbackHide))

	clk.Advance(3 * time.Second)
	assert.Equal(t, []string{"second"}, fired)
	assert.False(t, r.pending(timerFeedbackHide))
}

func TestTimerRegistry_CancelAll(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	r := newTimerRegistry(clk, func(fn func()) { fn() })

	fired := 0
	for _, name := range []timerName{timerHideControls, timerFeedbackHide, timerFeedbackReset} {
		r.schedule(name, time.Second, func() { fired++ })
	}
	assert.Equal(t, 3, r.size())

	r.cancelAll()
	clk.Advance(time.Minute)

	assert.Equal(t, 0, fired)
	assert.Equal(t, 0, r.size())
	assert.Equal(t, 0, clk.Pending())
}

func TestTimerRegistry_StaleFiringDiscarded(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))

	// Deliveries are held back, as if the serializing lock were busy.
	var held []func()
	r := newTimerRegistry(clk, func(fn func()) { held = append(held, fn) })

	fired := 0
	r.schedule(timerHideControls, time.Second, func() { fired++ })
	clk.Advance(time.Second)
	assert.Len(t, held, 1)

	r.cancel(timerHideControls)
	held[0]()
	assert.Equal(t, 0, fired)

	r.schedule(timerHideControls, time.Second, func() { fired++ })
	clk.Advance(time.Second)
	r.schedule(timerHideControls, time.Second, func() { fired += 10 })
	held[1]()
	assert.Equal(t, 0, fired, "a replaced timer must not run")

	clk.Advance(time.Second)
	held[2]()
	assert.Equal(t, 10, fired)
}
