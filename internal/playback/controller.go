// Package playback implements the interactive playback controller: it folds
// pointer, touch, keyboard and native media events into one observable
// playback state and drives a player.Element through imperative commands.
//
// Every entry point of a Controller runs to completion under one lock.
// Element requests and user callbacks produced by a transition are queued
// and run after the lock is released, so callbacks may call back into the
// Controller and elements may emit events synchronously.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/clipset/clipview/internal/clock"
	"github.com/clipset/clipview/internal/player"
)

// ErrUnmounted is returned by Mount after Unmount
var ErrUnmounted = errors.New("playback controller is unmounted")

// Options configures a Controller
type Options struct {
	Source      player.Source
	InitialTime time.Duration
	AutoPlay    bool

	SkipAmount   time.Duration // double-tap skip, DefaultSkipAmount when zero
	SeekStep     time.Duration // arrow keys, DefaultSeekStep when zero
	LongSeekStep time.Duration // j/l, DefaultLongSeekStep when zero
	HideDelay    time.Duration // controls auto-hide, DefaultHideDelay when zero
	Keys         *KeyMap       // DefaultKeyMap when nil

	Callbacks Callbacks
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Snapshot is everything a view needs to render the player
type Snapshot struct {
	State    State
	Controls ControlsVisibility
	Gesture  GestureState
}

// Handle is the imperative command surface exposed to parent collaborators
// such as a playlist queue or comment timestamp links
type Handle interface {
	SeekTo(t time.Duration)
	Play()
	Pause()
	CurrentTime() time.Duration
}

// Controller wires a media element, its native events and user input into
// a single playback state
type Controller struct {
	mu sync.Mutex

	id      string
	opts    Options
	element player.Element
	clock   clock.Clock
	logger  *slog.Logger

	store      *store
	timers     *timerRegistry
	gestures   *gestureRecognizer
	keyboard   *keyboardDispatcher
	visibility *visibilityTimer
	handle     *handle

	subscribers   map[int]func(Snapshot)
	nextSub       int
	stopListening func()

	mounted bool
	closed  bool
	down    atomic.Bool
}

// New creates a Controller for element. It does not touch the element until Mount.
func New(element player.Element, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	c := &Controller{
		id:          uuid.NewString(),
		opts:        opts,
		element:     element,
		clock:       opts.Clock,
		subscribers: make(map[int]func(Snapshot)),
	}
	c.logger = opts.Logger.With("player", c.id)
	c.handle = &handle{c: c}

	c.timers = newTimerRegistry(c.clock, c.do)
	c.store = newStore(element, opts.InitialTime, opts.AutoPlay, opts.Callbacks, c.logger)
	c.store.reenter = c.do
	c.gestures = newGestureRecognizer(opts.SkipAmount, c.store.seekRelative, c.timers)
	c.keyboard = newKeyboardDispatcher(keys, opts.SeekStep, opts.LongSeekStep)
	c.visibility = newVisibilityTimer(opts.HideDelay, c.timers)

	return c
}

// ID returns the controller's session id, used to correlate logs
func (c *Controller) ID() string {
	return c.id
}

// Handle returns the imperative command interface for parent collaborators
func (c *Controller) Handle() Handle {
	return c.handle
}

// Mount subscribes to the element's native events and loads the source.
// Mounting twice is a no-op.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	// Requests outlive the mount call but must keep its values.
	c.store.ctx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	stop := c.element.Listen(c.HandleEvent)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		stop()
		return ErrUnmounted
	}
	c.stopListening = stop
	c.mu.Unlock()

	if err := c.element.Load(ctx, c.opts.Source); err != nil {
		return fmt.Errorf("failed to load %s: %w", c.opts.Source.URL, err)
	}

	c.logger.Info("player mounted",
		"source", c.opts.Source.URL,
		"initial_time", c.opts.InitialTime,
		"autoplay", c.opts.AutoPlay)
	return nil
}

// Unmount stops listening to native events and cancels every timer.
// No callback or subscriber runs after Unmount returns. The element is
// left open; its owner closes it.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.down.Store(true)
	c.timers.cancelAll()
	c.store.drain()
	c.subscribers = nil
	stop := c.stopListening
	c.stopListening = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	c.logger.Info("player unmounted")
}

// Subscribe registers fn to receive a Snapshot after every change
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// do runs fn as one transition and then delivers its side effects
func (c *Controller) do(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	before := c.snapshotLocked()
	fn()
	c.visibility.setPlaying(c.store.state.IsPlaying)
	after := c.snapshotLocked()

	effects := c.store.drain()
	if after != before {
		for _, sub := range c.subscribers {
			effects = append(effects, func() { sub(after) })
		}
	}
	c.mu.Unlock()

	for _, effect := range effects {
		if c.down.Load() {
			return
		}
		effect()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.store.snapshot(),
		Controls: c.visibility.snapshot(),
		Gesture:  c.gestures.snapshot(),
	}
}

// HandleEvent folds one native media event into the state
func (c *Controller) HandleEvent(ev player.Event) {
	c.do(func() {
		c.logger.Debug("media event", "type", ev.Type.String())
		c.store.apply(ev)
	})
}

// Play requests playback start. IsPlaying changes once the element confirms.
func (c *Controller) Play() {
	c.do(c.store.play)
}

// Pause requests playback pause
func (c *Controller) Pause() {
	c.do(c.store.pause)
}

// TogglePlay pauses when playing, plays otherwise
func (c *Controller) TogglePlay() {
	c.do(c.store.togglePlay)
}

// Seek moves to t, clamped to the media duration
func (c *Controller) Seek(t time.Duration) {
	c.do(func() { c.store.seek(t) })
}

// SeekRelative seeks by delta from the current time
func (c *Controller) SeekRelative(delta time.Duration) {
	c.do(func() { c.store.seekRelative(delta) })
}

// SetFullscreen requests a fullscreen change
func (c *Controller) SetFullscreen(fullscreen bool) {
	c.do(func() { c.store.setFullscreen(fullscreen) })
}

// ToggleFullscreen requests the opposite of the confirmed fullscreen state
func (c *Controller) ToggleFullscreen() {
	c.do(c.store.toggleFullscreen)
}

// ToggleMute requests the opposite of the confirmed mute state
func (c *Controller) ToggleMute() {
	c.do(c.store.toggleMute)
}

// Click handles a click on the player surface
func (c *Controller) Click() {
	c.TogglePlay()
}

// TouchStart feeds a touch-start at (x, y) on a surface of the given width
// to the gesture recognizer
func (c *Controller) TouchStart(x, y, width float64) {
	c.do(func() {
		tap := Tap{At: c.clock.Now(), X: x, Y: y}
		if c.gestures.touchStart(tap, width) {
			c.logger.Debug("double tap skip", "zone", ZoneAt(x, width).String())
		}
	})
}

// PointerMove reports pointer movement over the player
func (c *Controller) PointerMove() {
	c.do(c.visibility.pointerMove)
}

// PointerLeave reports the pointer leaving the player area
func (c *Controller) PointerLeave() {
	c.do(c.visibility.pointerLeave)
}

// Key dispatches a key press and reports whether it was consumed
func (c *Controller) Key(ev KeyEvent) bool {
	handled := false
	c.do(func() {
		handled = c.keyboard.dispatch(ev, c.store)
	})
	return handled
}

// State returns the current playback state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.snapshot()
}

// Snapshot returns the current playback, controls and gesture state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ControlsVisible reports whether the on-screen controls are shown
func (c *Controller) ControlsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility.visible
}

// pendingTimers returns the number of armed timers
func (c *Controller) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers.size()
}

// handle is the Handle returned to parent collaborators
type handle struct {
	c *Controller
}

func (h *handle) SeekTo(t time.Duration) { h.c.Seek(t) }

func (h *handle) Play() { h.c.Play() }

func (h *handle) Pause() { h.c.Pause() }

func (h *handle) CurrentTime() time.Duration { return h.c.State().CurrentTime }
