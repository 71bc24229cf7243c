package playback

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipset/clipview/internal/clock"
)

type gestureHarness struct {
	g     *gestureRecognizer
	clk   *clock.Manual
	seeks []time.Duration
}

func newGestureHarness() *gestureHarness {
	h := &gestureHarness{clk: clock.NewManual(time.Unix(1_700_000_000, 0))}
	timers := newTimerRegistry(h.clk, func(fn func()) { fn() })
	h.g = newGestureRecognizer(0, func(d time.Duration) { h.seeks = append(h.seeks, d) }, timers)
	return h
}

func (h *gestureHarness) tap(x, y float64) bool {
	return h.g.touchStart(Tap{At: h.clk.Now(), X: x, Y: y}, 300)
}

func TestZoneAt(t *testing.T) {
	tests := []struct {
		x    float64
		want Zone
	}{
		{x: 0, want: ZoneLeft},
		{x: 98, want: ZoneLeft},
		{x: 100, want: ZoneCenter},
		{x: 150, want: ZoneCenter},
		{x: 200, want: ZoneCenter},
		{x: 202, want: ZoneRight},
		{x: 300, want: ZoneRight},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ZoneAt(tt.x, 300))
		})
	}
}

func TestDoubleTap_RightZoneSkipsForward(t *testing.T) {
	h := newGestureHarness()

	assert.False(t, h.tap(250, 100))
	h.clk.Advance(100 * time.Millisecond)
	assert.True(t, h.tap(255, 102))

	st := h.g.snapshot()
	assert.Equal(t, []time.Duration{5 * time.Second}, h.seeks)
	assert.Equal(t, 5*time.Second, st.AccumulatedRight)
	assert.Equal(t, time.Duration(0), st.AccumulatedLeft)
	assert.Equal(t, Feedback{Side: SideRight, Visible: true, Amount: 5 * time.Second}, st.Feedback)
}

func TestDoubleTap_LeftZoneSkipsBack(t *testing.T) {
	h := newGestureHarness()

	h.tap(40, 100)
	h.clk.Advance(50 * time.Millisecond)
	require.True(t, h.tap(45, 110))

	st := h.g.snapshot()
	assert.Equal(t, []time.Duration{-5 * time.Second}, h.seeks)
	assert.Equal(t, 5*time.Second, st.AccumulatedLeft)
	assert.Equal(t, SideLeft, st.Feedback.Side)
}

func TestDoubleTap_ThirdTapChains(t *testing.T) {
	h := newGestureHarness()

	h.tap(250, 100)
	h.clk.Advance(100 * time.Millisecond)
	h.tap(250, 100)
	h.clk.Advance(200 * time.Millisecond)
	require.True(t, h.tap(252, 101))

	st := h.g.snapshot()
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, h.seeks)
	assert.Equal(t, 10*time.Second, st.AccumulatedRight)
	assert.Equal(t, 10*time.Second, st.Feedback.Amount)
	assert.True(t, st.Feedback.Visible)
}

func TestDoubleTap_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		gap    time.Duration
		dx, dy float64
	}{
		{name: "window elapsed", gap: DoubleTapWindow},
		{name: "too far horizontally", gap: 100 * time.Millisecond, dx: 50},
		{name: "too far vertically", gap: 100 * time.Millisecond, dy: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGestureHarness()
			h.tap(250, 100)
			h.clk.Advance(tt.gap)

			assert.False(t, h.tap(250+tt.dx, 100+tt.dy))
			assert.Empty(t, h.seeks)
			st := h.g.snapshot()
			assert.False(t, st.Feedback.Visible)
			assert.True(t, st.HasLastTap)
			assert.Equal(t, 250+tt.dx, st.LastTap.X)
		})
	}
}

func TestDoubleTap_CenterDoesNothing(t *testing.T) {
	h := newGestureHarness()

	h.tap(150, 100)
	h.clk.Advance(100 * time.Millisecond)

	assert.False(t, h.tap(150, 100))
	assert.Empty(t, h.seeks)
	assert.Equal(t, 0, h.clk.Pending())
}

func TestDoubleTap_MalformedInputIgnored(t *testing.T) {
	h := newGestureHarness()
	h.tap(250, 100)

	assert.False(t, h.g.touchStart(Tap{At: h.clk.Now(), X: 250, Y: 100}, 0))
	assert.False(t, h.g.touchStart(Tap{At: h.clk.Now(), X: math.NaN(), Y: 100}, 300))
	assert.False(t, h.g.touchStart(Tap{At: h.clk.Now(), X: 250, Y: math.Inf(1)}, 300))
	assert.Empty(t, h.seeks)

	// The valid first tap is still remembered
	h.clk.Advance(10 * time.Millisecond)
	assert.True(t, h.tap(250, 100))
}

func TestFeedback_HideThenReset(t *testing.T) {
	h := newGestureHarness()
	h.tap(250, 100)
	h.tap(250, 100)

	h.clk.Advance(599 * time.Millisecond)
	assert.True(t, h.g.snapshot().Feedback.Visible)

	h.clk.Advance(time.Millisecond)
	st := h.g.snapshot()
	assert.False(t, st.Feedback.Visible)
	assert.Equal(t, 5*time.Second, st.AccumulatedRight, "accumulated survives the hide")

	h.clk.Advance(99 * time.Millisecond)
	assert.Equal(t, 5*time.Second, h.g.snapshot().AccumulatedRight)

	h.clk.Advance(time.Millisecond)
	st = h.g.snapshot()
	assert.Equal(t, time.Duration(0), st.AccumulatedRight)
	assert.Equal(t, Feedback{}, st.Feedback)
	assert.Equal(t, 0, h.clk.Pending())
}

func TestFeedback_NewSkipRearmsHide(t *testing.T) {
	h := newGestureHarness()
	h.tap(250, 100)
	h.tap(250, 100)

	h.clk.Advance(250 * time.Millisecond)
	h.tap(250, 100) // 250ms after the last tap: chained
	h.clk.Advance(500 * time.Millisecond)
	assert.True(t, h.g.snapshot().Feedback.Visible, "hide was re-armed by the chained skip")

	h.clk.Advance(100 * time.Millisecond)
	assert.False(t, h.g.snapshot().Feedback.Visible)
}

func TestFeedback_SkipDuringGraceKeepsCounting(t *testing.T) {
	h := newGestureHarness()
	h.tap(250, 100)
	h.tap(250, 100)

	// Hidden, reset pending
	h.clk.Advance(650 * time.Millisecond)
	require.False(t, h.g.snapshot().Feedback.Visible)

	h.tap(250, 100)
	h.clk.Advance(10 * time.Millisecond)
	h.tap(250, 100)

	st := h.g.snapshot()
	assert.Equal(t, 10*time.Second, st.AccumulatedRight)
	assert.True(t, st.Feedback.Visible)

	h.clk.Advance(200 * time.Millisecond)
	assert.Equal(t, 10*time.Second, h.g.snapshot().AccumulatedRight, "stale reset must not fire")
}
