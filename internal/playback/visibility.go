package playback

import "time"

// DefaultHideDelay is how long controls stay visible without pointer activity while playing
const DefaultHideDelay = 3 * time.Second

// ControlsVisibility is the on-screen controls state. HideDeadline is the
// zero time when no hide is scheduled.
type ControlsVisibility struct {
	Visible      bool
	HideDeadline time.Time
}

// visibilityTimer keeps the controls visible while paused and hides them
// after a quiet period while playing
type visibilityTimer struct {
	delay   time.Duration
	timers  *timerRegistry
	visible bool
	playing bool
}

func newVisibilityTimer(delay time.Duration, timers *timerRegistry) *visibilityTimer {
	if delay <= 0 {
		delay = DefaultHideDelay
	}
	return &visibilityTimer{delay: delay, timers: timers, visible: true}
}

func (v *visibilityTimer) pointerMove() {
	v.visible = true
	if v.playing {
		v.timers.schedule(timerHideControls, v.delay, v.hide)
	}
}

func (v *visibilityTimer) pointerLeave() {
	if !v.playing {
		return
	}
	v.timers.cancel(timerHideControls)
	v.visible = false
}

// setPlaying follows isPlaying transitions
func (v *visibilityTimer) setPlaying(playing bool) {
	if v.playing == playing {
		return
	}
	v.playing = playing
	if !playing {
		v.timers.cancel(timerHideControls)
		v.visible = true
		return
	}
	v.timers.schedule(timerHideControls, v.delay, v.hide)
}

func (v *visibilityTimer) hide() {
	if v.playing {
		v.visible = false
	}
}

func (v *visibilityTimer) snapshot() ControlsVisibility {
	return ControlsVisibility{
		Visible:      v.visible,
		HideDeadline: v.timers.deadline(timerHideControls),
	}
}
