package mpv

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipset/clipview/internal/player"
)

// timeUpdateInterval throttles time-pos notifications to roughly the rate a
// browser fires timeupdate
const timeUpdateInterval = 250 * time.Millisecond

// observedProperties are registered with observe_property on the event connection
var observedProperties = []string{
	"duration",
	"time-pos",
	"pause",
	"paused-for-cache",
	"eof-reached",
	"fullscreen",
	"mute",
	"volume",
}

// message is one line of mpv's JSON IPC stream: an event or a command reply
type message struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	RequestID int             `json:"request_id"`
	Error     string          `json:"error"`
}

// translator turns mpv property changes into player events. mpv reports
// state, the controller expects transitions, so the translator remembers
// the last value of each property. Not safe for concurrent use.
type translator struct {
	now func() time.Time

	duration    time.Duration
	paused      bool
	buffering   bool
	lastTime    time.Duration
	lastEmitted time.Time
	muted       bool
	volume      int
}

func newTranslator(now func() time.Time) *translator {
	return &translator{now: now, paused: true, volume: 100}
}

// reset forgets per-file state when a new file is loaded
func (t *translator) reset() {
	t.duration = 0
	t.buffering = false
	t.lastTime = 0
	t.lastEmitted = time.Time{}
}

func (t *translator) translate(msg message) []player.Event {
	switch msg.Event {
	case "property-change":
		return t.property(msg.Name, msg.Data)
	case "start-file":
		t.reset()
	case "playback-restart":
		return []player.Event{{Type: player.EventCanPlay, Duration: t.duration}}
	case "end-file":
		if msg.Reason == "error" {
			return []player.Event{{
				Type: player.EventError,
				Err:  fmt.Errorf("mpv failed to play file: %s", msg.FileError),
			}}
		}
	}
	return nil
}

func (t *translator) property(name string, data json.RawMessage) []player.Event {
	switch name {
	case "duration":
		seconds, ok := decodeFloat(data)
		if !ok || seconds <= 0 {
			return nil
		}
		d := fromSeconds(seconds)
		first := t.duration == 0
		t.duration = d
		if first {
			return []player.Event{{Type: player.EventLoadedMetadata, Duration: d}}
		}
		return []player.Event{{Type: player.EventDurationChange, Duration: d}}

	case "time-pos":
		seconds, ok := decodeFloat(data)
		if !ok {
			return nil
		}
		pos := fromSeconds(max(seconds, 0))
		now := t.now()
		// Backward jumps are seeks and are reported immediately.
		if pos >= t.lastTime && !t.lastEmitted.IsZero() && now.Sub(t.lastEmitted) < timeUpdateInterval {
			t.lastTime = pos
			return nil
		}
		t.lastTime = pos
		t.lastEmitted = now
		return []player.Event{{Type: player.EventTimeUpdate, CurrentTime: pos}}

	case "pause":
		paused, ok := decodeBool(data)
		if !ok {
			return nil
		}
		// mpv starts paused, so the first report only matters when it is false.
		if paused == t.paused {
			return nil
		}
		t.paused = paused
		if paused {
			return []player.Event{{Type: player.EventPause}}
		}
		if t.buffering {
			return nil
		}
		return []player.Event{{Type: player.EventPlaying}}

	case "paused-for-cache":
		buffering, ok := decodeBool(data)
		if !ok || buffering == t.buffering {
			return nil
		}
		t.buffering = buffering
		if buffering {
			return []player.Event{{Type: player.EventWaiting}}
		}
		if t.paused {
			return []player.Event{{Type: player.EventCanPlay, Duration: t.duration}}
		}
		return []player.Event{{Type: player.EventCanPlay, Duration: t.duration}, {Type: player.EventPlaying}}

	case "eof-reached":
		if eof, ok := decodeBool(data); ok && eof {
			return []player.Event{{Type: player.EventEnded}}
		}

	case "fullscreen":
		if fs, ok := decodeBool(data); ok {
			return []player.Event{{Type: player.EventFullscreenChange, Fullscreen: fs}}
		}

	case "mute":
		muted, ok := decodeBool(data)
		if !ok {
			return nil
		}
		t.muted = muted
		return []player.Event{t.volumeEvent()}

	case "volume":
		v, ok := decodeFloat(data)
		if !ok {
			return nil
		}
		t.volume = int(v)
		return []player.Event{t.volumeEvent()}
	}
	return nil
}

func (t *translator) volumeEvent() player.Event {
	return player.Event{Type: player.EventVolumeChange, Muted: t.muted, Volume: t.volume}
}

// decodeFloat decodes a numeric property value. Unavailable properties are null.
func decodeFloat(data json.RawMessage) (float64, bool) {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		return 0, false
	}
	return *v, true
}

func decodeBool(data json.RawMessage) (bool, bool) {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		return false, false
	}
	return *v, true
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
