// Package tui is the terminal overlay of the player. It forwards key and
// mouse input to a playback.Controller and renders its snapshots.
package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/clipset/clipview/internal/clipboard"
	"github.com/clipset/clipview/internal/clock"
	"github.com/clipset/clipview/internal/playback"
	"github.com/clipset/clipview/internal/queue"
	"github.com/clipset/clipview/internal/source"
)

const (
	// A terminal cell is roughly 8x16 pixels, so gesture distances keep their meaning.
	cellWidth  = 8.0
	cellHeight = 16.0

	defaultWidth    = 80
	statusDuration  = 2500 * time.Millisecond
	countdownTick   = 250 * time.Millisecond
	markerTolerance = time.Second
)

// Video describes what the current controller plays
type Video struct {
	ShortID string // empty for direct URLs
	Title   string
	Markers []source.Marker
}

// ControllerMsg switches the overlay to a new controller, e.g. after the
// queue advanced
type ControllerMsg struct {
	Controller *playback.Controller
	Video      Video
}

// ErrorMsg shows an error in the footer
type ErrorMsg struct {
	Err error
}

// StatusMsg shows a transient message in the footer
type StatusMsg string

type bridgeMsg struct{ msg tea.Msg }

type snapshotMsg struct {
	controllerID string
	snapshot     playback.Snapshot
}

type queueMsg struct{ state queue.State }

type clearStatusMsg struct{ seq int }

type tickMsg struct{}

// Options configures the overlay
type Options struct {
	Controller *playback.Controller
	Video      Video
	Queue      *queue.Queue
	Clipboard  *clipboard.Service
	ShareBase  string
	Keys       *KeyMap
	Bridge     *Bridge
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Model is the bubbletea model of the overlay
type Model struct {
	ctrl        *playback.Controller
	unsubscribe func()
	video       Video
	snap        playback.Snapshot

	queue      *queue.Queue
	queueState queue.State

	clipboard *clipboard.Service
	shareBase string
	bridge    *Bridge
	clock     clock.Clock
	logger    *slog.Logger

	keys     KeyMap
	help     help.Model
	bar      progress.Model
	showHelp bool

	width, height int

	status    string
	statusErr bool
	statusSeq int
}

// New creates the overlay model and subscribes to the initial controller
func New(opts Options) *Model {
	if opts.Bridge == nil {
		opts.Bridge = NewBridge()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	keys := DefaultKeyMap(playback.DefaultKeyMap())
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	m := &Model{
		queue:     opts.Queue,
		clipboard: opts.Clipboard,
		shareBase: opts.ShareBase,
		bridge:    opts.Bridge,
		clock:     opts.Clock,
		logger:    opts.Logger,
		keys:      keys,
		help:      help.New(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
		),
		width: defaultWidth,
	}
	if m.queue != nil {
		m.queueState = m.queue.State()
	}
	if opts.Controller != nil {
		m.attach(ControllerMsg{Controller: opts.Controller, Video: opts.Video})
	}
	return m
}

// Bridge returns the channel other goroutines use to reach the model
func (m *Model) Bridge() *Bridge {
	return m.bridge
}

// QueueChanged forwards queue changes to the model
func (m *Model) QueueChanged(s queue.State) {
	m.bridge.QueueChanged(s)
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.wait(), tea.SetWindowTitle(m.windowTitle()))
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bridgeMsg:
		return m, tea.Batch(m.handle(msg.msg), m.bridge.wait())
	default:
		return m, m.handle(msg)
	}
}

func (m *Model) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = m.contentWidth()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.BlurMsg:
		if m.ctrl != nil {
			m.ctrl.PointerLeave()
		}

	case ControllerMsg:
		m.attach(msg)
		return tea.SetWindowTitle(m.windowTitle())

	case snapshotMsg:
		if m.ctrl != nil && msg.controllerID == m.ctrl.ID() {
			m.snap = msg.snapshot
		}

	case queueMsg:
		m.queueState = msg.state
		if msg.state.Counting {
			return m.tick()
		}

	case tickMsg:
		if m.queueState.Counting {
			return m.tick()
		}

	case clipboard.CopiedMsg:
		if msg.Err != nil {
			m.logger.Warn("failed to copy share link", "error", msg.Err)
			return m.setStatus("Copy failed: "+msg.Err.Error(), true)
		}
		return m.setStatus("Link copied: "+msg.Text, false)

	case ErrorMsg:
		if msg.Err == nil {
			return nil
		}
		return m.setStatus(msg.Err.Error(), true)

	case StatusMsg:
		return m.setStatus(string(msg), false)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status, m.statusErr = "", false
		}
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, m.keys.CopyLink):
		return m.copyLink()

	case key.Matches(msg, m.keys.Next):
		return m.queueCmd(func(q *queue.Queue) error { return q.Next() })

	case key.Matches(msg, m.keys.Previous):
		return m.queueCmd(func(q *queue.Queue) error { return q.Previous() })

	case key.Matches(msg, m.keys.Cancel):
		if m.queue != nil && m.queueState.Counting {
			m.queue.Cancel()
			return m.setStatus("Autoplay cancelled", false)
		}

	case key.Matches(msg, m.keys.NextMarker):
		m.seekMarker(1)

	case key.Matches(msg, m.keys.PrevMarker):
		m.seekMarker(-1)

	default:
		if m.ctrl != nil {
			m.ctrl.Key(keyEvent(msg))
		}
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.ctrl == nil {
		return
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		m.ctrl.PointerMove()
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		x := float64(msg.X) * cellWidth
		y := float64(msg.Y) * cellHeight
		width := float64(m.width) * cellWidth

		m.ctrl.PointerMove()
		m.ctrl.TouchStart(x, y, width)
		// Side zones are reserved for double-tap skips.
		if playback.ZoneAt(x, width) == playback.ZoneCenter {
			m.ctrl.Click()
		}
	}
}

// attach subscribes to a controller, dropping the previous subscription
func (m *Model) attach(msg ControllerMsg) {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.ctrl = msg.Controller
	m.video = msg.Video
	if m.ctrl == nil {
		m.snap = playback.Snapshot{}
		return
	}

	id := m.ctrl.ID()
	bridge := m.bridge
	m.snap = m.ctrl.Snapshot()
	m.unsubscribe = m.ctrl.Subscribe(func(s playback.Snapshot) {
		bridge.Send(snapshotMsg{controllerID: id, snapshot: s})
	})
}

func (m *Model) copyLink() tea.Cmd {
	if m.ctrl == nil || m.clipboard == nil {
		return nil
	}
	if m.video.ShortID == "" {
		return m.setStatus("Direct URLs have no share link", true)
	}
	return m.clipboard.CopyShareLink(m.shareBase, m.video.ShortID, m.ctrl.Handle().CurrentTime())
}

// queueCmd runs a queue move off the update loop; opening a video resolves it over the network
func (m *Model) queueCmd(fn func(q *queue.Queue) error) tea.Cmd {
	if m.queue == nil {
		return nil
	}
	q := m.queue
	return func() tea.Msg {
		if err := fn(q); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

// seekMarker jumps to the next (dir > 0) or previous comment marker
func (m *Model) seekMarker(dir int) {
	if m.ctrl == nil || len(m.video.Markers) == 0 {
		return
	}
	now := m.ctrl.Handle().CurrentTime()

	var target source.Marker
	var ok bool
	if dir > 0 {
		target, ok = lo.Find(m.video.Markers, func(mk source.Marker) bool {
			return mk.At() > now+markerTolerance
		})
	} else {
		target, _, ok = lo.FindLastIndexOf(m.video.Markers, func(mk source.Marker) bool {
			return mk.At() < now-markerTolerance
		})
	}
	if ok {
		m.ctrl.Handle().SeekTo(target.At())
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status, m.statusErr = text, isErr
	seq := m.statusSeq
	return tea.Tick(statusDuration, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(countdownTick, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) windowTitle() string {
	if m.video.Title == "" {
		return "clipview"
	}
	return fmt.Sprintf("%s - clipview", m.video.Title)
}

// Close drops the controller subscription
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}
