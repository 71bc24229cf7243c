package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clipset/clipview/internal/playback"
)

// KeyMap holds the overlay shortcuts. Player shortcuts live in playback.KeyMap.
type KeyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CopyLink   key.Binding
	Next       key.Binding
	Previous   key.Binding
	Cancel     key.Binding
	PrevMarker key.Binding
	NextMarker key.Binding

	Player playback.KeyMap
}

// DefaultKeyMap returns the default overlay shortcuts
func DefaultKeyMap(player playback.KeyMap) KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		CopyLink:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy link at current time")),
		Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next video")),
		Previous:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous video")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel autoplay")),
		PrevMarker: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous comment")),
		NextMarker: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next comment")),
		Player:     player,
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return append(k.Player.ShortHelp(), k.CopyLink, k.Help, k.Quit)
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return append(k.Player.FullHelp(),
		[]key.Binding{k.Next, k.Previous, k.Cancel},
		[]key.Binding{k.PrevMarker, k.NextMarker, k.CopyLink, k.Help, k.Quit},
	)
}

// keyEvent converts a terminal key press for the player. The overlay is
// the player, so focus is always inside it.
func keyEvent(msg tea.KeyMsg) playback.KeyEvent {
	name := msg.String()
	ev := playback.KeyEvent{FocusInPlayer: true, Alt: msg.Alt}
	if msg.Alt {
		name = strings.TrimPrefix(name, "alt+")
	}
	if rest, ok := strings.CutPrefix(name, "ctrl+"); ok {
		ev.Ctrl = true
		name = rest
	}
	ev.Key = name
	return ev
}
