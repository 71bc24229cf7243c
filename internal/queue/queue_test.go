package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipset/clipview/internal/clock"
	"github.com/clipset/clipview/internal/playback"
	"github.com/clipset/clipview/internal/source"
)

type opened struct {
	shortID string
	at      time.Duration
}

type harness struct {
	clock  *clock.Manual
	queue  *Queue
	mu     sync.Mutex
	opened []opened
	states []State
}

func newHarness(t *testing.T, n int, opts Options) *harness {
	t.Helper()
	h := &harness{clock: clock.NewManual(time.Unix(1_700_000_000, 0))}

	items := make([]Item, n)
	for i := range items {
		// Reverse order to check sorting by position.
		pos := n - 1 - i
		items[i] = Item{ShortID: fmt.Sprintf("vid%d", pos), Position: pos}
	}

	opts.Clock = h.clock
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.OnChange = func(s State) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.states = append(h.states, s)
	}
	h.queue = New(items, func(_ context.Context, item Item, at time.Duration) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.opened = append(h.opened, opened{item.ShortID, at})
		return nil
	}, opts)
	t.Cleanup(h.queue.Close)
	return h
}

func (h *harness) openedIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, len(h.opened))
	for i, o := range h.opened {
		ids[i] = o.shortID
	}
	return ids
}

func TestStart(t *testing.T) {
	h := newHarness(t, 3, Options{AutoPlay: true})

	require.NoError(t, h.queue.Start(context.Background(), 0, 12*time.Second))
	assert.Equal(t, []opened{{"vid0", 12 * time.Second}}, h.opened)

	s := h.queue.State()
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, 3, s.Len)
	require.NotNil(t, s.Next)
	assert.Equal(t, "vid1", s.Next.ShortID)
}

func TestEnded_CountdownThenAdvance(t *testing.T) {
	h := newHarness(t, 3, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	h.queue.Ended()
	s := h.queue.State()
	require.True(t, s.Counting)
	assert.Equal(t, DefaultCountdown, s.Remaining(h.clock.Now()))

	h.clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, []string{"vid0"}, h.openedIDs())
	assert.Equal(t, time.Millisecond, h.queue.State().Remaining(h.clock.Now()))

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"vid0", "vid1"}, h.openedIDs())
	assert.False(t, h.queue.State().Counting)
	assert.Equal(t, 1, h.queue.State().Index)
}

func TestEnded_CustomAndImmediateCountdown(t *testing.T) {
	h := newHarness(t, 2, Options{AutoPlay: true, Countdown: time.Second})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))
	h.queue.Ended()
	h.clock.Advance(time.Second)
	assert.Equal(t, []string{"vid0", "vid1"}, h.openedIDs())

	h = newHarness(t, 2, Options{AutoPlay: true, Countdown: -1})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))
	h.queue.Ended()
	assert.Equal(t, []string{"vid0", "vid1"}, h.openedIDs())
	assert.Zero(t, h.clock.Pending())
}

func TestEnded_AutoPlayOff(t *testing.T) {
	h := newHarness(t, 3, Options{})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	h.queue.Ended()
	assert.False(t, h.queue.State().Counting)
	h.clock.Advance(time.Minute)
	assert.Equal(t, []string{"vid0"}, h.openedIDs())
}

func TestEnded_LastItemStops(t *testing.T) {
	h := newHarness(t, 2, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 1, 0))

	h.queue.Ended()
	s := h.queue.State()
	assert.True(t, s.Finished)
	assert.False(t, s.Counting)
	assert.Nil(t, s.Next)
	assert.Zero(t, h.clock.Pending())
	assert.Equal(t, []string{"vid1"}, h.openedIDs())
}

func TestCancel(t *testing.T) {
	h := newHarness(t, 3, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	h.queue.Ended()
	h.queue.Cancel()
	assert.False(t, h.queue.State().Counting)

	h.clock.Advance(time.Minute)
	assert.Equal(t, []string{"vid0"}, h.openedIDs())

	// Cancelling twice is harmless.
	h.queue.Cancel()
}

func TestNextPrevious(t *testing.T) {
	h := newHarness(t, 3, Options{})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	assert.ErrorIs(t, h.queue.Previous(), ErrNoPrevious)
	require.NoError(t, h.queue.Next())
	require.NoError(t, h.queue.Advance())
	assert.ErrorIs(t, h.queue.Next(), ErrNoNext)
	require.NoError(t, h.queue.Previous())

	assert.Equal(t, []string{"vid0", "vid1", "vid2", "vid1"}, h.openedIDs())
}

func TestNext_DuringCountdown(t *testing.T) {
	h := newHarness(t, 3, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	h.queue.Ended()
	require.NoError(t, h.queue.Next())
	h.clock.Advance(time.Minute)

	assert.Equal(t, []string{"vid0", "vid1"}, h.openedIDs(), "the countdown must not advance a second time")
}

func TestJumpTo(t *testing.T) {
	h := newHarness(t, 3, Options{})

	require.NoError(t, h.queue.JumpTo(2, 30*time.Second))
	require.NoError(t, h.queue.JumpTo(1, -time.Second))
	assert.Equal(t, []opened{{"vid2", 30 * time.Second}, {"vid1", 0}}, h.opened)

	assert.ErrorIs(t, h.queue.JumpTo(3, 0), ErrOutOfBounds)
	assert.ErrorIs(t, h.queue.JumpTo(-1, 0), ErrOutOfBounds)
}

func TestJumpTo_OpenError(t *testing.T) {
	boom := errors.New("stream not ready")
	q := New([]Item{{ShortID: "a"}}, func(context.Context, Item, time.Duration) error { return boom }, Options{})

	assert.ErrorIs(t, q.JumpTo(0, 0), boom)
}

func TestEmpty(t *testing.T) {
	q := New(nil, func(context.Context, Item, time.Duration) error { return nil }, Options{})
	assert.ErrorIs(t, q.Start(context.Background(), 0, 0), ErrEmpty)
	assert.Equal(t, State{}, q.State())
}

func TestClose(t *testing.T) {
	h := newHarness(t, 3, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	h.queue.Ended()
	h.queue.Close()
	assert.Zero(t, h.clock.Pending())

	h.clock.Advance(time.Minute)
	h.queue.Ended()
	assert.ErrorIs(t, h.queue.Next(), ErrClosed)
	assert.Equal(t, []string{"vid0"}, h.openedIDs())
}

func TestAttach(t *testing.T) {
	h := newHarness(t, 2, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))

	var ownEnded int
	cb := h.queue.Attach(playback.Callbacks{OnEnded: func() { ownEnded++ }})
	cb.OnEnded()

	assert.Equal(t, 1, ownEnded)
	assert.True(t, h.queue.State().Counting)

	cb = h.queue.Attach(playback.Callbacks{})
	assert.NotPanics(t, cb.OnEnded)
}

func TestOnChange(t *testing.T) {
	h := newHarness(t, 2, Options{AutoPlay: true})
	require.NoError(t, h.queue.Start(context.Background(), 0, 0))
	h.queue.Ended()
	h.clock.Advance(DefaultCountdown)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.GreaterOrEqual(t, len(h.states), 3)
	assert.True(t, h.states[1].Counting)
	last := h.states[len(h.states)-1]
	assert.Equal(t, 1, last.Index)
	assert.False(t, last.Counting)
}

func TestFromPlaylist(t *testing.T) {
	secs := int32(42)
	items := FromPlaylist(&source.Playlist{Videos: []source.PlaylistVideo{
		{VideoID: "v1", Position: 0, Video: source.Video{ShortID: "abc", Title: "First", DurationSeconds: &secs}},
		{VideoID: "v2", Position: 1, Video: source.Video{ShortID: "def", Title: "Second"}},
	}})

	assert.Equal(t, []Item{
		{ShortID: "abc", VideoID: "v1", Title: "First", Position: 0, Duration: 42 * time.Second},
		{ShortID: "def", VideoID: "v2", Title: "Second", Position: 1},
	}, items)
}
