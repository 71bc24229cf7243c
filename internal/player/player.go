package player

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotLoaded is returned by element commands issued before a source was loaded
	ErrNotLoaded = errors.New("media element has no source loaded")
	// ErrClosed is returned by element commands issued after Close
	ErrClosed = errors.New("media element is closed")
	// ErrFullscreenDenied is returned when the backend refuses a fullscreen change
	ErrFullscreenDenied = errors.New("fullscreen request denied")
)

// Element is the native media element the playback controller drives.
// Commands only request a change; the element confirms it later with an Event.
type Element interface {
	// Load starts fetching the source. Playback does not start until Play.
	Load(ctx context.Context, src Source) error

	// Playback control
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error

	// Presentation
	SetFullscreen(ctx context.Context, fullscreen bool) error
	SetMuted(ctx context.Context, muted bool) error

	// Listen registers a handler for native events. The returned function
	// removes the handler; it is safe to call more than once.
	Listen(handler func(Event)) (stop func())

	// Close releases the element and its backend resources
	Close() error
}

// Source is a resolved media source
type Source struct {
	URL       string            `json:"url"`
	PosterURL string            `json:"poster_url,omitempty"`
	Title     string            `json:"title,omitempty"`
	Format    string            `json:"format,omitempty"` // hls, progressive
	Headers   map[string]string `json:"headers,omitempty"`
}

// EventType identifies a native media element event
type EventType int

const (
	EventLoadedMetadata EventType = iota
	EventCanPlay
	EventWaiting
	EventStalled
	EventPlaying
	EventPause
	EventEnded
	EventTimeUpdate
	EventDurationChange
	EventFullscreenChange
	EventVolumeChange
	EventError
)

var eventNames = map[EventType]string{
	EventLoadedMetadata:   "loadedmetadata",
	EventCanPlay:          "canplay",
	EventWaiting:          "waiting",
	EventStalled:          "stalled",
	EventPlaying:          "playing",
	EventPause:            "pause",
	EventEnded:            "ended",
	EventTimeUpdate:       "timeupdate",
	EventDurationChange:   "durationchange",
	EventFullscreenChange: "fullscreenchange",
	EventVolumeChange:     "volumechange",
	EventError:            "error",
}

// String returns the DOM-style name of the event type
func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is a native media element event. Only the fields relevant to the
// event type are set.
type Event struct {
	Type EventType

	// TimeUpdate
	CurrentTime time.Duration
	// LoadedMetadata, CanPlay, DurationChange; zero when unknown
	Duration time.Duration
	// FullscreenChange
	Fullscreen bool
	// VolumeChange
	Muted  bool
	Volume int // 0-100
	// Error
	Err error
}
