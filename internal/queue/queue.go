// Package queue plays the videos of a playlist in order, advancing after
// a countdown when a video ends.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/clipset/clipview/internal/clock"
	"github.com/clipset/clipview/internal/playback"
	"github.com/clipset/clipview/internal/source"
)

// DefaultCountdown is the pause between two videos
const DefaultCountdown = 5 * time.Second

var (
	ErrEmpty       = errors.New("queue is empty")
	ErrClosed      = errors.New("queue is closed")
	ErrNoNext      = errors.New("no next video")
	ErrNoPrevious  = errors.New("no previous video")
	ErrOutOfBounds = errors.New("index out of bounds")
)

// Item is one video of the queue
type Item struct {
	ShortID  string
	VideoID  string
	Title    string
	Position int
	Duration time.Duration
}

// Opener starts playing item at the given position
type Opener func(ctx context.Context, item Item, at time.Duration) error

// Options configures a Queue
type Options struct {
	AutoPlay bool
	// Countdown before advancing, DefaultCountdown when zero and immediate when negative
	Countdown time.Duration
	Clock     clock.Clock
	Logger    *slog.Logger
	// OnChange receives the state after every change, outside the queue lock
	OnChange func(State)
}

// State describes the queue for rendering
type State struct {
	Index    int
	Len      int
	Current  Item
	Next     *Item
	Counting bool
	Deadline time.Time
	Finished bool
}

// Remaining returns the countdown left at now
func (s State) Remaining(now time.Time) time.Duration {
	if !s.Counting {
		return 0
	}
	return max(s.Deadline.Sub(now), 0)
}

// Queue owns the playing order of a playlist
type Queue struct {
	mu sync.Mutex

	items []Item
	index int
	open  Opener
	opts  Options
	clock clock.Clock
	ctx   context.Context

	timer    clock.Timer
	seq      uint64
	deadline time.Time
	finished bool
	closed   bool
}

// New creates a queue over items ordered by position
func New(items []Item, open Opener, opts Options) *Queue {
	if opts.Countdown == 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	return &Queue{
		items: sorted,
		open:  open,
		opts:  opts,
		clock: opts.Clock,
		ctx:   context.Background(),
	}
}

// FromPlaylist converts the videos of a playlist into queue items
func FromPlaylist(p *source.Playlist) []Item {
	return lo.Map(p.Videos, func(v source.PlaylistVideo, _ int) Item {
		return Item{
			ShortID:  v.Video.ShortID,
			VideoID:  v.VideoID,
			Title:    v.Video.Title,
			Position: v.Position,
			Duration: v.Video.Duration(),
		}
	})
}

// Attach chains the queue to a controller's OnEnded callback
func (q *Queue) Attach(cb playback.Callbacks) playback.Callbacks {
	prev := cb.OnEnded
	cb.OnEnded = func() {
		if prev != nil {
			prev()
		}
		q.Ended()
	}
	return cb
}

// Start opens the item at index, at the given position
func (q *Queue) Start(ctx context.Context, index int, at time.Duration) error {
	q.mu.Lock()
	q.ctx = context.WithoutCancel(ctx)
	q.mu.Unlock()
	return q.JumpTo(index, at)
}

// Ended is called when the current video finished. On the last video
// the queue stops; otherwise it advances after the countdown when
// autoplay is on.
func (q *Queue) Ended() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.index >= len(q.items)-1 {
		q.finished = true
		q.mu.Unlock()
		q.opts.Logger.Info("playlist finished")
		q.notify()
		return
	}
	if !q.opts.AutoPlay {
		q.mu.Unlock()
		q.notify()
		return
	}
	if q.opts.Countdown < 0 {
		q.mu.Unlock()
		q.advance(0)
		return
	}

	q.stopTimerLocked()
	q.seq++
	seq := q.seq
	q.deadline = q.clock.Now().Add(q.opts.Countdown)
	q.timer = q.clock.AfterFunc(q.opts.Countdown, func() { q.advance(seq) })
	q.mu.Unlock()

	q.opts.Logger.Debug("autoplay countdown started", "countdown", q.opts.Countdown)
	q.notify()
}

// Advance moves to the next video now, skipping any countdown
func (q *Queue) Advance() error {
	return q.Next()
}

// advance is the countdown expiry. seq zero skips the staleness check.
func (q *Queue) advance(seq uint64) {
	q.mu.Lock()
	if q.closed || (seq != 0 && seq != q.seq) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	if err := q.Next(); err != nil && !errors.Is(err, ErrClosed) {
		q.opts.Logger.Warn("failed to advance playlist", "error", err)
	}
}

// Cancel stops a running countdown
func (q *Queue) Cancel() {
	q.mu.Lock()
	if q.timer == nil {
		q.mu.Unlock()
		return
	}
	q.stopTimerLocked()
	q.mu.Unlock()

	q.opts.Logger.Debug("autoplay countdown cancelled")
	q.notify()
}

// Next opens the following video
func (q *Queue) Next() error {
	q.mu.Lock()
	next := q.index + 1
	q.mu.Unlock()
	if err := q.JumpTo(next, 0); err != nil {
		if errors.Is(err, ErrOutOfBounds) {
			return ErrNoNext
		}
		return err
	}
	return nil
}

// Previous opens the preceding video
func (q *Queue) Previous() error {
	q.mu.Lock()
	prev := q.index - 1
	q.mu.Unlock()
	if err := q.JumpTo(prev, 0); err != nil {
		if errors.Is(err, ErrOutOfBounds) {
			return ErrNoPrevious
		}
		return err
	}
	return nil
}

// JumpTo opens the video at index starting at the given position
func (q *Queue) JumpTo(index int, at time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		return ErrEmpty
	}
	if index < 0 || index >= len(q.items) {
		q.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrOutOfBounds, index, len(q.items))
	}

	q.stopTimerLocked()
	q.index = index
	q.finished = false
	item := q.items[index]
	ctx := q.ctx
	q.mu.Unlock()

	q.opts.Logger.Info("opening playlist video", "index", index, "short_id", item.ShortID, "at", at)
	q.notify()

	if err := q.open(ctx, item, max(at, 0)); err != nil {
		return fmt.Errorf("failed to open %s: %w", item.ShortID, err)
	}
	return nil
}

// Close cancels the countdown. The queue ignores every call afterwards.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.stopTimerLocked()
}

// Items returns the queue in playing order
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

// State returns the current queue state
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

func (q *Queue) stateLocked() State {
	s := State{
		Index:    q.index,
		Len:      len(q.items),
		Counting: q.timer != nil,
		Finished: q.finished,
	}
	if len(q.items) > 0 {
		s.Current = q.items[q.index]
	}
	if q.index+1 < len(q.items) {
		next := q.items[q.index+1]
		s.Next = &next
	}
	if s.Counting {
		s.Deadline = q.deadline
	}
	return s
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.seq++
	q.deadline = time.Time{}
}

func (q *Queue) notify() {
	if q.opts.OnChange == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	s := q.stateLocked()
	q.mu.Unlock()
	q.opts.OnChange(s)
}
