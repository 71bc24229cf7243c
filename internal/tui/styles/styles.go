package styles

import "github.com/charmbracelet/lipgloss"

// Oxocarbon palette
var (
	OxocarbonBase00 = lipgloss.Color("#262626")
	OxocarbonBase01 = lipgloss.Color("#393939")
	OxocarbonBase03 = lipgloss.Color("#767676")
	OxocarbonBase04 = lipgloss.Color("#dde1e6")
	OxocarbonBase05 = lipgloss.Color("#f2f4f8")
	OxocarbonWhite  = lipgloss.Color("#ffffff")

	OxocarbonTeal   = lipgloss.Color("#3ddbd9")
	OxocarbonPink   = lipgloss.Color("#ee5396")
	OxocarbonRed    = lipgloss.Color("#ff5252")
	OxocarbonGreen  = lipgloss.Color("#42be65")
	OxocarbonPurple = lipgloss.Color("#be95ff")
	OxocarbonMauve  = lipgloss.Color("#d1aaff")
)

var (
	// Frame around the whole overlay
	AppStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(OxocarbonBase01)

	TitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonPurple).
			Padding(0, 1).
			Bold(true)

	// Playlist position, e.g. 2/5
	PositionStyle = lipgloss.NewStyle().
			Foreground(OxocarbonMauve).
			Bold(true)

	TimeStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase04)

	StateStyle = lipgloss.NewStyle().
			Foreground(OxocarbonGreen).
			Bold(true)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase03).
			Italic(true)

	// Double-tap skip indicator
	FeedbackStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05).
			Background(OxocarbonBase01).
			Padding(0, 1).
			Bold(true)

	MarkerStyle = lipgloss.NewStyle().
			Foreground(OxocarbonTeal)

	CountdownStyle = lipgloss.NewStyle().
			Foreground(OxocarbonPink).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase03).
			MarginTop(1)

	// Footer for status messages
	FooterStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05).
			Background(OxocarbonBase00).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(OxocarbonRed).
			Bold(true)
)
