package playback

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
)

const (
	// DefaultSeekStep is the seek applied by the arrow keys
	DefaultSeekStep = 5 * time.Second
	// DefaultLongSeekStep is the seek applied by j and l
	DefaultLongSeekStep = 10 * time.Second
)

// KeyEvent is a key press delivered to the player
type KeyEvent struct {
	Key string

	Ctrl bool
	Alt  bool
	Meta bool

	// FocusInPlayer is true while the player container or a descendant holds focus
	FocusInPlayer bool
	// TextInput is true when the event target is an editable field
	TextInput bool
}

// String returns the normalized key name, so a KeyEvent can be matched
// against key.Binding values
func (e KeyEvent) String() string {
	return normalizeKey(e.Key)
}

var keyAliases = map[string]string{
	"arrowleft":  "left",
	"arrowright": "right",
	"space":      " ",
	"spacebar":   " ",
}

func normalizeKey(k string) string {
	if k == " " {
		return k
	}
	lower := strings.ToLower(k)
	if alias, ok := keyAliases[lower]; ok {
		return alias
	}
	return lower
}

// KeyMap holds the player shortcuts
type KeyMap struct {
	TogglePlay      key.Binding
	SeekBack        key.Binding
	SeekForward     key.Binding
	SeekBackLong    key.Binding
	SeekForwardLong key.Binding
	Fullscreen      key.Binding
	Mute            key.Binding
	SeekPercent     key.Binding
	SeekStart       key.Binding
	SeekEnd         key.Binding
}

// DefaultKeyMap returns the default player shortcuts
func DefaultKeyMap() KeyMap {
	return KeyMap{
		TogglePlay:      key.NewBinding(key.WithKeys(" ", "k"), key.WithHelp("space/k", "play/pause")),
		SeekBack:        key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "back 5s")),
		SeekForward:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "forward 5s")),
		SeekBackLong:    key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "back 10s")),
		SeekForwardLong: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "forward 10s")),
		Fullscreen:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fullscreen")),
		Mute:            key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		SeekPercent: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "jump to 0%-90%"),
		),
		SeekStart: key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "start")),
		SeekEnd:   key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "end")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePlay, k.SeekBack, k.SeekForward, k.Fullscreen, k.Mute}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TogglePlay, k.Fullscreen, k.Mute},
		{k.SeekBack, k.SeekForward, k.SeekBackLong, k.SeekForwardLong},
		{k.SeekPercent, k.SeekStart, k.SeekEnd},
	}
}

// commands is the part of the store the keyboard drives
type commands interface {
	togglePlay()
	seek(t time.Duration)
	seekRelative(delta time.Duration)
	toggleFullscreen()
	toggleMute()
	snapshot() State
}

// keyboardDispatcher maps key presses to playback commands
type keyboardDispatcher struct {
	keys     KeyMap
	step     time.Duration
	longStep time.Duration
}

func newKeyboardDispatcher(keys KeyMap, step, longStep time.Duration) *keyboardDispatcher {
	if step <= 0 {
		step = DefaultSeekStep
	}
	if longStep <= 0 {
		longStep = DefaultLongSeekStep
	}
	return &keyboardDispatcher{keys: keys, step: step, longStep: longStep}
}

// dispatch runs the command bound to ev and reports whether the key was consumed
func (d *keyboardDispatcher) dispatch(ev KeyEvent, cmds commands) bool {
	if !ev.FocusInPlayer || ev.TextInput || ev.Ctrl || ev.Alt || ev.Meta {
		return false
	}

	switch {
	case key.Matches(ev, d.keys.TogglePlay):
		cmds.togglePlay()
	case key.Matches(ev, d.keys.SeekBack):
		cmds.seekRelative(-d.step)
	case key.Matches(ev, d.keys.SeekForward):
		cmds.seekRelative(d.step)
	case key.Matches(ev, d.keys.SeekBackLong):
		cmds.seekRelative(-d.longStep)
	case key.Matches(ev, d.keys.SeekForwardLong):
		cmds.seekRelative(d.longStep)
	case key.Matches(ev, d.keys.Fullscreen):
		cmds.toggleFullscreen()
	case key.Matches(ev, d.keys.Mute):
		cmds.toggleMute()
	case key.Matches(ev, d.keys.SeekStart):
		cmds.seek(0)
	case key.Matches(ev, d.keys.SeekEnd):
		st := cmds.snapshot()
		if !st.DurationKnown {
			return false
		}
		cmds.seek(st.Duration)
	case key.Matches(ev, d.keys.SeekPercent):
		st := cmds.snapshot()
		if !st.DurationKnown {
			return false
		}
		tenths := time.Duration(ev.String()[0] - '0')
		cmds.seek(st.Duration * tenths / 10)
	default:
		return false
	}
	return true
}
