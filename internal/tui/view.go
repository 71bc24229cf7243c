package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clipset/clipview/internal/playback"
	"github.com/clipset/clipview/internal/timestamp"
	"github.com/clipset/clipview/internal/tui/styles"
)

// View implements tea.Model
func (m *Model) View() string {
	width := m.contentWidth()
	var sections []string

	sections = append(sections, m.titleLine(width))

	if m.ctrl == nil {
		sections = append(sections, styles.LoadingStyle.Render("Opening…"))
	} else if m.snap.Controls.Visible {
		sections = append(sections, m.stateLine(width), m.progressLine(width))
		if line := m.markerLine(width); line != "" {
			sections = append(sections, line)
		}
	}

	if line := m.feedbackLine(width); line != "" {
		sections = append(sections, line)
	}
	if line := m.countdownLine(width); line != "" {
		sections = append(sections, line)
	}
	if m.status != "" {
		style := styles.FooterStyle
		if m.statusErr {
			style = styles.ErrorStyle
		}
		sections = append(sections, style.Render(truncate(m.status, width-2)))
	}
	if m.ctrl == nil || m.snap.Controls.Visible || m.showHelp {
		sections = append(sections, styles.HelpStyle.Render(m.help.View(m.keys)))
	}

	return styles.AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// contentWidth is the terminal width minus the frame
func (m *Model) contentWidth() int {
	frame := styles.AppStyle.GetHorizontalFrameSize()
	return max(m.width-frame, 20)
}

func (m *Model) titleLine(width int) string {
	position := ""
	if m.queue != nil && m.queueState.Len > 0 {
		position = styles.PositionStyle.Render(fmt.Sprintf("%d/%d", m.queueState.Index+1, m.queueState.Len))
	}
	title := m.video.Title
	if title == "" {
		title = "clipview"
	}
	// Title padding plus the position and a gap.
	room := width - lipgloss.Width(position) - 3
	return spread(styles.TitleStyle.Render(truncate(title, room)), position, width)
}

func (m *Model) stateLine(width int) string {
	s := m.snap.State

	var state string
	switch {
	case s.IsLoading:
		state = styles.LoadingStyle.Render("Loading…")
	case s.IsPlaying:
		state = styles.StateStyle.Render("▶ Playing")
	default:
		state = styles.StateStyle.Render("⏸ Paused")
	}

	var flags []string
	if s.IsMuted {
		flags = append(flags, "muted")
	}
	if s.IsFullscreen {
		flags = append(flags, "fullscreen")
	}
	right := timeText(s)
	if len(flags) > 0 {
		right = strings.Join(flags, " · ") + "  " + right
	}
	return spread(state, styles.TimeStyle.Render(right), width)
}

func timeText(s playback.State) string {
	if !s.DurationKnown {
		return timestamp.Format(s.CurrentTime) + " / --:--"
	}
	return timestamp.Format(s.CurrentTime) + " / " + timestamp.Format(s.Duration)
}

func (m *Model) progressLine(width int) string {
	m.bar.Width = width
	return m.bar.ViewAs(m.snap.State.Progress())
}

// markerLine draws a dot under the progress bar for every comment marker
func (m *Model) markerLine(width int) string {
	s := m.snap.State
	if len(m.video.Markers) == 0 || !s.DurationKnown || s.Duration <= 0 {
		return ""
	}

	cells := []rune(strings.Repeat(" ", width))
	for _, mk := range m.video.Markers {
		i := int(float64(mk.At()) / float64(s.Duration) * float64(width-1))
		if i >= 0 && i < width {
			cells[i] = '•'
		}
	}
	return styles.MarkerStyle.Render(string(cells))
}

// feedbackLine shows the accumulated double-tap skip on its side
func (m *Model) feedbackLine(width int) string {
	fb := m.snap.Gesture.Feedback
	if !fb.Visible {
		return ""
	}
	seconds := int(fb.Amount.Seconds())
	switch fb.Side {
	case playback.SideLeft:
		return styles.FeedbackStyle.Render(fmt.Sprintf("«« %ds", seconds))
	case playback.SideRight:
		return spread("", styles.FeedbackStyle.Render(fmt.Sprintf("%ds »»", seconds)), width)
	}
	return ""
}

func (m *Model) countdownLine(width int) string {
	qs := m.queueState
	switch {
	case qs.Counting && qs.Next != nil:
		remaining := qs.Remaining(m.clock.Now())
		secs := int(math.Ceil(remaining.Seconds()))
		text := fmt.Sprintf("Up next: %s in %ds · esc to cancel", qs.Next.Title, secs)
		return styles.CountdownStyle.Render(truncate(text, width))
	case qs.Finished:
		return styles.CountdownStyle.Render("Playlist finished")
	}
	return ""
}
