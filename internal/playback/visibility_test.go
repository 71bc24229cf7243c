package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clipset/clipview/internal/clock"
)

func newTestVisibility() (*visibilityTimer, *clock.Manual) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	timers := newTimerRegistry(clk, func(fn func()) { fn() })
	return newVisibilityTimer(0, timers), clk
}

func TestVisibility_PausedStaysVisible(t *testing.T) {
	v, clk := newTestVisibility()

	assert.True(t, v.snapshot().Visible)
	v.pointerMove()
	v.pointerLeave()
	clk.Advance(time.Minute)

	st := v.snapshot()
	assert.True(t, st.Visible)
	assert.True(t, st.HideDeadline.IsZero())
}

func TestVisibility_HidesAfterDelayWhilePlaying(t *testing.T) {
	v, clk := newTestVisibility()
	start := clk.Now()

	v.setPlaying(true)
	assert.Equal(t, start.Add(DefaultHideDelay), v.snapshot().HideDeadline)

	clk.Advance(2999 * time.Millisecond)
	assert.True(t, v.snapshot().Visible)

	clk.Advance(time.Millisecond)
	st := v.snapshot()
	assert.False(t, st.Visible)
	assert.True(t, st.HideDeadline.IsZero())
}

func TestVisibility_PointerMoveRestartsCountdown(t *testing.T) {
	v, clk := newTestVisibility()
	v.setPlaying(true)

	clk.Advance(2 * time.Second)
	v.pointerMove()
	clk.Advance(2 * time.Second)
	assert.True(t, v.snapshot().Visible)

	clk.Advance(time.Second)
	assert.False(t, v.snapshot().Visible)

	v.pointerMove()
	assert.True(t, v.snapshot().Visible)
	assert.Equal(t, 1, clk.Pending())
}

func TestVisibility_PointerLeaveHidesWhilePlaying(t *testing.T) {
	v, clk := newTestVisibility()
	v.setPlaying(true)

	v.pointerLeave()

	assert.False(t, v.snapshot().Visible)
	assert.Equal(t, 0, clk.Pending())
}

func TestVisibility_PauseShowsAndCancels(t *testing.T) {
	v, clk := newTestVisibility()
	v.setPlaying(true)
	clk.Advance(DefaultHideDelay)
	assert.False(t, v.snapshot().Visible)

	v.setPlaying(true)
	v.pointerMove()
	v.setPlaying(false)

	assert.True(t, v.snapshot().Visible)
	assert.Equal(t, 0, clk.Pending())
}
