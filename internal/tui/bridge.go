package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clipset/clipview/internal/queue"
)

// Bridge carries messages from controller subscriptions and queue
// callbacks into the bubbletea update loop
type Bridge struct {
	mu    sync.Mutex
	queue []tea.Msg
	ready chan struct{}
}

// NewBridge creates a Bridge
func NewBridge() *Bridge {
	return &Bridge{ready: make(chan struct{}, 1)}
}

// Send queues msg without blocking. A snapshot replaces any undelivered
// snapshot of the same controller; every other message is kept.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	if snap, ok := msg.(snapshotMsg); ok {
		b.dropSnapshotLocked(snap.controllerID)
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *Bridge) dropSnapshotLocked(controllerID string) {
	for i, queued := range b.queue {
		if snap, ok := queued.(snapshotMsg); ok && snap.controllerID == controllerID {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return
		}
	}
}

// QueueChanged is an OnChange callback for queue.Options
func (b *Bridge) QueueChanged(s queue.State) {
	b.Send(queueMsg{state: s})
}

// next pops the oldest message
func (b *Bridge) next() (tea.Msg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	msg := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return bridgeMsg{msg: msg}, true
}

// wait returns a command that delivers the next message
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			if msg, ok := b.next(); ok {
				return msg
			}
			<-b.ready
		}
	}
}
