package playback

import (
	"math"
	"time"
)

const (
	// DoubleTapWindow is the longest gap between two taps of a double tap
	DoubleTapWindow = 300 * time.Millisecond
	// DoubleTapRadius is the largest distance, per axis, between two taps of a double tap
	DoubleTapRadius = 50.0
	// FeedbackDuration is how long the skip indicator stays visible
	FeedbackDuration = 600 * time.Millisecond
	// FeedbackResetGrace is how long after hiding the indicator the accumulated skip resets
	FeedbackResetGrace = 100 * time.Millisecond
	// DefaultSkipAmount is how far one double tap seeks
	DefaultSkipAmount = 5 * time.Second

	leftZoneEdge  = 0.33
	rightZoneEdge = 0.67
)

// Zone is a horizontal third of the player surface
type Zone int

const (
	ZoneLeft Zone = iota
	ZoneCenter
	ZoneRight
)

// String returns the zone name
func (z Zone) String() string {
	switch z {
	case ZoneLeft:
		return "left"
	case ZoneRight:
		return "right"
	default:
		return "center"
	}
}

// ZoneAt classifies a horizontal position on a surface of the given width
func ZoneAt(x, width float64) Zone {
	relative := x / width
	switch {
	case relative < leftZoneEdge:
		return ZoneLeft
	case relative > rightZoneEdge:
		return ZoneRight
	default:
		return ZoneCenter
	}
}

// Side is the side a skip indicator is shown on
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

// String returns the side name
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// Feedback is the skip indicator shown after a double tap
type Feedback struct {
	Side    Side
	Visible bool
	Amount  time.Duration
}

// Tap is a single touch-start on the player surface
type Tap struct {
	At   time.Time
	X, Y float64
}

// GestureState is the ephemeral state of the gesture recognizer
type GestureState struct {
	LastTap          Tap
	HasLastTap       bool
	AccumulatedLeft  time.Duration
	AccumulatedRight time.Duration
	Feedback         Feedback
}

// gestureRecognizer turns touch-starts into double-tap skips
type gestureRecognizer struct {
	skip         time.Duration
	seekRelative func(delta time.Duration)
	timers       *timerRegistry

	lastTap          *Tap
	accumulatedLeft  time.Duration
	accumulatedRight time.Duration
	feedback         Feedback
}

func newGestureRecognizer(skip time.Duration, seekRelative func(time.Duration), timers *timerRegistry) *gestureRecognizer {
	if skip <= 0 {
		skip = DefaultSkipAmount
	}
	return &gestureRecognizer{
		skip:         skip,
		seekRelative: seekRelative,
		timers:       timers,
	}
}

// touchStart handles one tap on a surface of the given width and reports
// whether it triggered a skip. Malformed input is ignored.
func (g *gestureRecognizer) touchStart(tap Tap, width float64) bool {
	if !(width > 0) || !finite(tap.X) || !finite(tap.Y) {
		return false
	}

	if !g.isDoubleTap(tap) {
		g.lastTap = &tap
		return false
	}
	// Replace rather than clear so a third tap chains into another double tap.
	g.lastTap = &tap

	switch ZoneAt(tap.X, width) {
	case ZoneLeft:
		g.seekRelative(-g.skip)
		g.accumulatedLeft += g.skip
		g.showFeedback(SideLeft, g.accumulatedLeft)
		return true
	case ZoneRight:
		g.seekRelative(g.skip)
		g.accumulatedRight += g.skip
		g.showFeedback(SideRight, g.accumulatedRight)
		return true
	}
	// Center double tap does nothing; play toggling belongs to the click handler.
	return false
}

func (g *gestureRecognizer) isDoubleTap(tap Tap) bool {
	last := g.lastTap
	if last == nil {
		return false
	}
	gap := tap.At.Sub(last.At)
	if gap < 0 || gap >= DoubleTapWindow {
		return false
	}
	return math.Abs(tap.X-last.X) < DoubleTapRadius && math.Abs(tap.Y-last.Y) < DoubleTapRadius
}

func (g *gestureRecognizer) showFeedback(side Side, amount time.Duration) {
	// A reset still pending from the previous indicator would zero the
	// counter while it is on screen.
	g.timers.cancel(timerFeedbackReset)
	g.feedback = Feedback{Side: side, Visible: true, Amount: amount}
	g.timers.schedule(timerFeedbackHide, FeedbackDuration, g.hideFeedback)
}

func (g *gestureRecognizer) hideFeedback() {
	g.feedback.Visible = false
	g.timers.schedule(timerFeedbackReset, FeedbackResetGrace, g.resetAccumulated)
}

func (g *gestureRecognizer) resetAccumulated() {
	g.accumulatedLeft = 0
	g.accumulatedRight = 0
	g.feedback = Feedback{}
}

func (g *gestureRecognizer) snapshot() GestureState {
	st := GestureState{
		AccumulatedLeft:  g.accumulatedLeft,
		AccumulatedRight: g.accumulatedRight,
		Feedback:         g.feedback,
	}
	if g.lastTap != nil {
		st.LastTap = *g.lastTap
		st.HasLastTap = true
	}
	return st
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
