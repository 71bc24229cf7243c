package main

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clipset/clipview/internal/config"
	"github.com/clipset/clipview/internal/playback"
	"github.com/clipset/clipview/internal/player"
	"github.com/clipset/clipview/internal/queue"
	"github.com/clipset/clipview/internal/source"
	"github.com/clipset/clipview/internal/tui"
)

// resolver is the part of source.Resolver a session needs
type resolver interface {
	Resolve(ctx context.Context, shortID string) (player.Source, error)
	Video(ctx context.Context, shortID string) (*source.Video, error)
	Markers(ctx context.Context, videoID string) ([]source.Marker, error)
}

// sender delivers messages to the overlay; *tui.Bridge in production
type sender interface {
	Send(msg tea.Msg)
}

// session plays one video or a playlist on a single media element. Each
// video gets its own controller; the element is reused.
type session struct {
	element  player.Element
	resolver resolver
	bridge   sender
	logger   *slog.Logger

	mu       sync.Mutex
	settings config.PlaybackConfig
	queue    *queue.Queue
	current  *playback.Controller
}

func newSession(element player.Element, r resolver, bridge sender, settings config.PlaybackConfig, logger *slog.Logger) *session {
	return &session{
		element:  element,
		resolver: r,
		bridge:   bridge,
		settings: settings,
		logger:   logger,
	}
}

// updateSettings applies reloaded playback settings to the next video
func (s *session) updateSettings(pc config.PlaybackConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = pc
}

func (s *session) setQueue(q *queue.Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = q
}

// openRef plays a command line reference
func (s *session) openRef(ctx context.Context, ref source.Ref, at time.Duration, autoplay bool) error {
	if ref.IsDirect() {
		src := player.Source{URL: ref.URL, Title: path.Base(ref.URL)}
		return s.open(ctx, src, tui.Video{Title: src.Title}, at, autoplay)
	}
	return s.openShortID(ctx, ref.ShortID, at, autoplay)
}

// openItem is the queue opener
func (s *session) openItem(ctx context.Context, item queue.Item, at time.Duration) error {
	return s.openShortID(ctx, item.ShortID, at, true)
}

func (s *session) openShortID(ctx context.Context, shortID string, at time.Duration, autoplay bool) error {
	src, err := s.resolver.Resolve(ctx, shortID)
	if err != nil {
		return err
	}

	video := tui.Video{ShortID: shortID, Title: src.Title}
	// Markers are decoration; playback goes on without them.
	if meta, err := s.resolver.Video(ctx, shortID); err != nil {
		s.logger.Warn("failed to fetch video", "short_id", shortID, "error", err)
	} else if markers, err := s.resolver.Markers(ctx, meta.ID); err != nil {
		s.logger.Warn("failed to fetch comment markers", "short_id", shortID, "error", err)
	} else {
		video.Markers = markers
	}

	return s.open(ctx, src, video, at, autoplay)
}

// open replaces the current controller with one playing src
func (s *session) open(ctx context.Context, src player.Source, video tui.Video, at time.Duration, autoplay bool) error {
	s.mu.Lock()
	pc := s.settings
	q := s.queue
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	callbacks := playback.Callbacks{
		OnError: func(err error) {
			s.bridge.Send(tui.ErrorMsg{Err: err})
		},
	}
	if q != nil {
		callbacks = q.Attach(callbacks)
	}

	ctrl := playback.New(s.element, playback.Options{
		Source:       src,
		InitialTime:  at,
		AutoPlay:     autoplay,
		SkipAmount:   pc.SkipAmount,
		SeekStep:     pc.SeekStep,
		LongSeekStep: pc.LongSeekStep,
		HideDelay:    pc.HideDelay,
		Callbacks:    callbacks,
		Logger:       s.logger,
	})

	// The old controller must stop listening before the element switches files.
	if prev != nil {
		prev.Unmount()
	}
	if err := ctrl.Mount(ctx); err != nil {
		ctrl.Unmount()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.mu.Lock()
	s.current = ctrl
	s.mu.Unlock()

	s.bridge.Send(tui.ControllerMsg{Controller: ctrl, Video: video})
	return nil
}

// close unmounts the current controller and closes the element
func (s *session) close() error {
	s.mu.Lock()
	ctrl := s.current
	q := s.queue
	s.current = nil
	s.mu.Unlock()

	if q != nil {
		q.Close()
	}
	if ctrl != nil {
		ctrl.Unmount()
	}
	return s.element.Close()
}
