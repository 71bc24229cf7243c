package playback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipset/clipview/internal/clock"
	"github.com/clipset/clipview/internal/player"
)

// fakeElement records the requests it receives and lets tests emit native events
type fakeElement struct {
	mu            sync.Mutex
	calls         []string
	handlers      map[int]func(player.Event)
	nextHandler   int
	loaded        player.Source
	loadErr       error
	playErr       error
	fullscreenErr error
}

func newFakeElement() *fakeElement {
	return &fakeElement{handlers: make(map[int]func(player.Event))}
}

func (f *fakeElement) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeElement) Load(ctx context.Context, src player.Source) error {
	f.record("load")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = src
	return f.loadErr
}

func (f *fakeElement) Play(ctx context.Context) error {
	f.record("play")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playErr
}

func (f *fakeElement) Pause(ctx context.Context) error {
	f.record("pause")
	return nil
}

func (f *fakeElement) Seek(ctx context.Context, position time.Duration) error {
	f.record(fmt.Sprintf("seek %s", position))
	return nil
}

func (f *fakeElement) SetFullscreen(ctx context.Context, fullscreen bool) error {
	f.record(fmt.Sprintf("fullscreen %t", fullscreen))
	return f.fullscreenErr
}

func (f *fakeElement) SetMuted(ctx context.Context, muted bool) error {
	f.record(fmt.Sprintf("mute %t", muted))
	return nil
}

func (f *fakeElement) Listen(handler func(player.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextHandler
	f.nextHandler++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeElement) Close() error {
	f.record("close")
	return nil
}

func (f *fakeElement) emit(ev player.Event) {
	f.mu.Lock()
	handlers := make([]func(player.Event), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (f *fakeElement) emitType(t player.EventType) {
	f.emit(player.Event{Type: t})
}

func (f *fakeElement) ready(duration time.Duration) {
	f.emit(player.Event{Type: player.EventLoadedMetadata, Duration: duration})
	f.emit(player.Event{Type: player.EventCanPlay, Duration: duration})
}

func (f *fakeElement) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeElement) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeElement) failPlay(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func (f *fakeElement) listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, opts Options) (*Controller, *fakeElement, *clock.Manual) {
	t.Helper()

	el := newFakeElement()
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	opts.Clock = clk
	opts.Logger = discardLogger()

	c := New(el, opts)
	require.NoError(t, c.Mount(context.Background()))
	t.Cleanup(c.Unmount)
	return c, el, clk
}

// requireConsistent checks the PlaybackState invariants
func requireConsistent(t *testing.T, st State) {
	t.Helper()
	require.GreaterOrEqual(t, st.CurrentTime, time.Duration(0))
	if st.DurationKnown {
		require.LessOrEqual(t, st.CurrentTime, st.Duration)
	}
	if st.IsPlaying {
		require.True(t, st.IsReady, "playing before ready: %+v", st)
	}
	require.False(t, st.IsLoading && st.IsReady, "loading and ready: %+v", st)
}
