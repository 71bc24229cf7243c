package playback

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/clipset/clipview/internal/player"
)

// requestTimeout bounds a single command forwarded to the media element
const requestTimeout = 5 * time.Second

// State is the observable playback state of one player
type State struct {
	IsPlaying    bool
	IsLoading    bool
	IsReady      bool
	IsFullscreen bool
	IsMuted      bool
	Volume       int

	CurrentTime   time.Duration
	Duration      time.Duration
	DurationKnown bool
}

// Progress returns CurrentTime as a fraction of Duration, or 0 when the
// duration is unknown
func (s State) Progress() float64 {
	if !s.DurationKnown || s.Duration <= 0 {
		return 0
	}
	return float64(s.CurrentTime) / float64(s.Duration)
}

// Callbacks are invoked at confirmed playback transitions. Nil callbacks are skipped.
type Callbacks struct {
	OnPlay       func()
	OnPause      func()
	OnEnded      func()
	OnTimeUpdate func(currentTime time.Duration)
	OnReady      func()
	OnError      func(err error)
}

// intent is the last play/pause request that the element has not confirmed yet
type intent int

const (
	intentNone intent = iota
	intentPlay
	intentPause
)

// store is the single source of truth for a player's playback state.
// Commands never change IsPlaying or IsFullscreen directly: they forward a
// request to the element, and apply folds the confirming event back in.
// Side effects (element requests and callbacks) are queued and drained by
// the Controller after its lock is released. Not safe for concurrent use.
type store struct {
	state State

	intent     intent
	intentSeq  uint64
	stalled    bool // the element was playing when it started waiting
	readyFired bool
	endedFired bool

	initialTime time.Duration
	autoPlay    bool

	ctx       context.Context
	element   player.Element
	callbacks Callbacks
	logger    *slog.Logger

	pending []func()

	// reenter runs fn as a new transition; set by the Controller
	reenter func(fn func())
}

func newStore(element player.Element, initialTime time.Duration, autoPlay bool, callbacks Callbacks, logger *slog.Logger) *store {
	initialTime = max(initialTime, 0)
	return &store{
		state: State{
			IsLoading:   true,
			CurrentTime: initialTime,
			Volume:      100,
		},
		initialTime: initialTime,
		autoPlay:    autoPlay,
		ctx:         context.Background(),
		element:     element,
		callbacks:   callbacks,
		logger:      logger,
	}
}

// drain returns and clears the queued side effects
func (s *store) drain() []func() {
	effects := s.pending
	s.pending = nil
	return effects
}

// request queues a command for the element. Failures are logged, never returned.
func (s *store) request(name string, fn func(ctx context.Context) error) {
	ctx := s.ctx
	s.pending = append(s.pending, func() {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("media element request failed", "request", name, "error", err)
		}
	})
}

// requestPlayback records want as the intent and forwards the request.
// A failed request drops the intent so later commands follow the confirmed state.
func (s *store) requestPlayback(want intent, name string, fn func(ctx context.Context) error) {
	s.intent = want
	s.intentSeq++
	seq := s.intentSeq
	ctx := s.ctx
	s.pending = append(s.pending, func() {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		err := fn(ctx)
		if err == nil {
			return
		}
		s.logger.Warn("media element request failed", "request", name, "error", err)
		if s.reenter != nil {
			s.reenter(func() {
				if s.intentSeq == seq {
					s.intent = intentNone
				}
			})
		}
	})
}

func (s *store) notify(fn func()) {
	if fn != nil {
		s.pending = append(s.pending, fn)
	}
}

// wantsPlaying is the playing state the store is converging to: an
// unconfirmed request wins over the last confirmed state.
func (s *store) wantsPlaying() bool {
	switch s.intent {
	case intentPlay:
		return true
	case intentPause:
		return false
	}
	return s.state.IsPlaying || s.stalled
}

func (s *store) play() {
	if s.wantsPlaying() {
		return
	}
	s.requestPlayback(intentPlay, "play", s.element.Play)
}

func (s *store) pause() {
	if !s.wantsPlaying() {
		return
	}
	s.requestPlayback(intentPause, "pause", s.element.Pause)
}

func (s *store) togglePlay() {
	if s.wantsPlaying() {
		s.pause()
	} else {
		s.play()
	}
}

func (s *store) seek(t time.Duration) {
	t = s.clamp(t)
	s.state.CurrentTime = t
	s.request("seek", func(ctx context.Context) error {
		return s.element.Seek(ctx, t)
	})
}

func (s *store) seekRelative(delta time.Duration) {
	s.seek(saturatingAdd(s.state.CurrentTime, delta))
}

func (s *store) setFullscreen(fullscreen bool) {
	if s.state.IsFullscreen == fullscreen {
		return
	}
	s.request("fullscreen", func(ctx context.Context) error {
		return s.element.SetFullscreen(ctx, fullscreen)
	})
}

func (s *store) toggleFullscreen() {
	s.setFullscreen(!s.state.IsFullscreen)
}

func (s *store) toggleMute() {
	muted := !s.state.IsMuted
	s.request("mute", func(ctx context.Context) error {
		return s.element.SetMuted(ctx, muted)
	})
}

func (s *store) snapshot() State {
	return s.state
}

// apply folds one native event into the state. Every event type maps to
// exactly one transition.
func (s *store) apply(ev player.Event) {
	switch ev.Type {
	case player.EventLoadedMetadata:
		s.onLoadedMetadata(ev)
	case player.EventCanPlay:
		s.onCanPlay(ev)
	case player.EventWaiting, player.EventStalled:
		s.onWaiting()
	case player.EventPlaying:
		s.onPlaying()
	case player.EventPause:
		s.onPause()
	case player.EventEnded:
		s.onEnded()
	case player.EventTimeUpdate:
		s.onTimeUpdate(ev)
	case player.EventDurationChange:
		s.setDuration(ev.Duration)
	case player.EventFullscreenChange:
		s.state.IsFullscreen = ev.Fullscreen
	case player.EventVolumeChange:
		s.state.IsMuted = ev.Muted
		s.state.Volume = lo.Clamp(ev.Volume, 0, 100)
	case player.EventError:
		s.onError(ev)
	default:
		s.logger.Debug("ignoring unknown media event", "type", int(ev.Type))
	}
}

func (s *store) onLoadedMetadata(ev player.Event) {
	s.setDuration(ev.Duration)
	s.markReady()
}

func (s *store) onCanPlay(ev player.Event) {
	if ev.Duration > 0 {
		s.setDuration(ev.Duration)
	}
	s.markReady()
}

func (s *store) onWaiting() {
	if s.state.IsPlaying {
		s.stalled = true
	}
	s.state.IsPlaying = false
	s.state.IsReady = false
	s.state.IsLoading = true
}

func (s *store) onPlaying() {
	resumed := s.stalled
	s.stalled = false
	// The element's confirmed state supersedes any request, matching or not.
	s.intent = intentNone

	wasPlaying := s.state.IsPlaying
	s.state.IsPlaying = true
	if !wasPlaying {
		s.endedFired = false
		if !resumed {
			s.notify(s.callbacks.OnPlay)
		}
	}

	// Playing implies the media can play. IsPlaying is set first so a
	// pending autoplay does not issue a second play request.
	s.markReady()
}

func (s *store) onPause() {
	wasPlaying := s.state.IsPlaying || s.stalled
	s.stalled = false
	s.intent = intentNone
	s.state.IsPlaying = false
	if wasPlaying {
		s.notify(s.callbacks.OnPause)
	}
}

func (s *store) onEnded() {
	s.state.IsPlaying = false
	s.stalled = false
	s.intent = intentNone
	if s.endedFired {
		return
	}
	s.endedFired = true
	if s.state.DurationKnown {
		s.state.CurrentTime = s.state.Duration
	}
	s.notify(s.callbacks.OnEnded)
}

func (s *store) onTimeUpdate(ev player.Event) {
	s.state.CurrentTime = s.clamp(ev.CurrentTime)
	if cb := s.callbacks.OnTimeUpdate; cb != nil {
		t := s.state.CurrentTime
		s.notify(func() { cb(t) })
	}
}

func (s *store) onError(ev player.Event) {
	s.logger.Warn("media element error", "error", ev.Err)
	if cb := s.callbacks.OnError; cb != nil {
		err := ev.Err
		s.notify(func() { cb(err) })
	}
}

func (s *store) setDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	s.state.Duration = d
	s.state.DurationKnown = true
	s.state.CurrentTime = s.clamp(s.state.CurrentTime)
}

// markReady moves the state out of loading. The first time it happens the
// pending initial seek and autoplay are issued.
func (s *store) markReady() {
	s.state.IsReady = true
	s.state.IsLoading = false
	if s.readyFired {
		return
	}
	s.readyFired = true
	s.notify(s.callbacks.OnReady)

	if s.initialTime > 0 {
		s.seek(s.initialTime)
	}
	if s.autoPlay {
		s.play()
	}
}

func (s *store) clamp(t time.Duration) time.Duration {
	upper := time.Duration(math.MaxInt64)
	if s.state.DurationKnown {
		upper = s.state.Duration
	}
	return lo.Clamp(t, 0, upper)
}

func saturatingAdd(a, b time.Duration) time.Duration {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return time.Duration(math.MaxInt64)
	case b < 0 && sum > a:
		return 0
	}
	return sum
}
