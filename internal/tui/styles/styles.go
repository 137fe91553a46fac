package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
	Amber     = lipgloss.Color("#F59E0B")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	OnlineBadge = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	OfflineBadge = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	PendingStyle = lipgloss.NewStyle().
			Foreground(Amber)

	FailedStyle = lipgloss.NewStyle().
			Foreground(Red)

	HintStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 2)
)
