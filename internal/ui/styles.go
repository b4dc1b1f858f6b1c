package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// The palette follows the hardware tiers: cool hues for the CPU side
// (group, NUMA domain, core/unit), one warm hue for accelerator devices.
var (
	accentColor  = lipgloss.Color("#5A56E0")
	unitColor    = lipgloss.Color("#2DD4BF")
	threadColor  = lipgloss.Color("#38BDF8")
	numaColor    = lipgloss.Color("#A78BFA")
	groupColor   = lipgloss.Color("#60A5FA")
	deviceColor  = lipgloss.Color("#FB923C")
	successColor = lipgloss.Color("#34D399")
	errorColor   = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(accentColor).
			Padding(0, 2)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(threadColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(1, 2)

	successBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(successColor).
			Padding(0, 2)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(errorColor).
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	helpStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(mutedColor)

	unitStyle = lipgloss.NewStyle().
			Foreground(unitColor)

	threadStyle = lipgloss.NewStyle().
			Foreground(threadColor)

	numaStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(numaColor)

	groupStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(groupColor)

	deviceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(deviceColor)

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(deviceColor)
)
