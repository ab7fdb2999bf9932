package tui

import (
	"github.com/charmbracelet/lipgloss"

	"support-chat/internal/domain"
)

var (
	accent = lipgloss.Color("63")
	muted  = lipgloss.Color("245")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(accent).Padding(0, 1)
	subtitleStyle = lipgloss.NewStyle().Foreground(muted).Italic(true)
	headerStyle   = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("238"))

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25")).
			Padding(0, 1)
	assistantBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)
	selectedBubbleStyle = assistantBubbleStyle.BorderForeground(accent)
	selectedMarkStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	timeStyle           = lipgloss.NewStyle().Foreground(muted)

	welcomeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)
	welcomeTitleStyle = lipgloss.NewStyle().Bold(true)

	thinkingStyle = lipgloss.NewStyle().Foreground(accent)
	errorStyle    = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)
	errorHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("210"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent)
	inputDisabledStyle = inputStyle.BorderForeground(lipgloss.Color("238"))

	helpStyle   = lipgloss.NewStyle().Foreground(muted)
	copiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

var agentColors = map[domain.AgentCategory]lipgloss.Color{
	domain.AgentGeneralSupport:    lipgloss.Color("33"),
	domain.AgentProductSpecialist: lipgloss.Color("135"),
	domain.AgentTechnicalSupport:  lipgloss.Color("208"),
}

var agentBlurbs = map[domain.AgentCategory]string{
	domain.AgentGeneralSupport:    "orders, shipping, returns and billing",
	domain.AgentProductSpecialist: "features, comparisons and recommendations",
	domain.AgentTechnicalSupport:  "setup, troubleshooting and error messages",
}

func agentBadge(a domain.AgentCategory) string {
	if a == domain.AgentNone {
		return ""
	}
	color, ok := agentColors[a]
	if !ok {
		color = muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("231")).
		Background(color).
		Bold(true).
		Padding(0, 1).
		Render(string(a))
}
