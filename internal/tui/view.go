package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"support-chat/internal/conversation"
	"support-chat/internal/domain"
)

const (
	title    = "AI Customer Support"
	subtitle = "Powered by intelligent assistance"
	thinking = "AI is thinking..."
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	snap := m.ctrl.Snapshot()
	sections := []string{m.headerView(), m.viewport.View()}
	if s := m.statusView(snap); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, m.inputView(snap), m.helpView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) chromeHeight(snap conversation.Snapshot) int {
	h := lipgloss.Height(m.headerView()) + lipgloss.Height(m.inputView(snap)) + lipgloss.Height(m.helpView())
	if s := m.statusView(snap); s != "" {
		h += lipgloss.Height(s)
	}
	return h
}

func (m Model) headerView() string {
	return headerStyle.Width(m.width).Render(titleStyle.Render(title) + " " + subtitleStyle.Render(subtitle))
}

func (m Model) statusView(snap conversation.Snapshot) string {
	switch snap.State {
	case conversation.StateAwaitingResponse:
		return m.spinner.View() + " " + thinkingStyle.Render(thinking)
	case conversation.StateError:
		return errorStyle.Render("⚠ "+snap.ErrorMessage) + " " + errorHintStyle.Render("ctrl+r retry")
	}
	return ""
}

func (m Model) inputView(snap conversation.Snapshot) string {
	style := inputStyle
	if snap.State == conversation.StateAwaitingResponse {
		style = inputDisabledStyle
	}
	return style.Render(m.input.View())
}

func (m Model) helpView() string {
	return helpStyle.Render("enter send • alt+enter newline • alt+↑/↓ select • ctrl+y copy • ctrl+l clear • esc quit")
}

// renderConversation also reports the first line of the selected message,
// or -1 when nothing is selected.
func (m Model) renderConversation(snap conversation.Snapshot) (string, int) {
	if len(snap.Messages) == 0 {
		return m.welcomeView(), -1
	}
	blocks := make([]string, 0, len(snap.Messages))
	line, selectedLine := 0, -1
	for _, msg := range snap.Messages {
		block := m.renderMessage(msg)
		if m.selectedID != 0 && msg.ID == m.selectedID {
			selectedLine = line
		}
		line += lipgloss.Height(block) + 1
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n"), selectedLine
}

func (m Model) welcomeView() string {
	var b strings.Builder
	b.WriteString(welcomeTitleStyle.Render("Welcome! How can we help you today?"))
	b.WriteString("\n\nYour question is routed to the right specialist:\n")
	for _, a := range domain.AgentCategories {
		b.WriteString("\n" + agentBadge(a) + " " + agentBlurbs[a])
	}
	b.WriteString("\n\nType your message below and press Enter to start.")
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, welcomeStyle.Render(b.String()))
}

func (m Model) renderMessage(msg domain.Message) string {
	stamp := timeStyle.Render(msg.Timestamp.Format("15:04"))
	if msg.IsUser() {
		bubble := userBubbleStyle.Render(wrap(msg.Content, m.bubbleWidth()-2))
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right,
			lipgloss.JoinVertical(lipgloss.Right, bubble, stamp))
	}

	meta := stamp
	if badge := agentBadge(msg.Agent); badge != "" {
		meta = badge + " " + stamp
	}
	bubble := assistantBubbleStyle
	if msg.ID == m.selectedID {
		meta = selectedMarkStyle.Render("▶") + " " + meta
		bubble = selectedBubbleStyle
	}
	if m.copied && msg.ID == m.copiedID {
		meta += "  " + copiedStyle.Render("✓ Copied")
	}
	body := bubble.Width(m.bubbleWidth()).Render(m.renderMarkdown(msg.Content))
	return lipgloss.JoinVertical(lipgloss.Left, meta, body)
}

// renderMarkdown falls back to the raw text when no renderer is configured
// or rendering fails.
func (m Model) renderMarkdown(content string) string {
	if !m.markdown || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		m.logger.Debug().Err(err).Msg("markdown render failed")
		return content
	}
	return strings.Trim(out, "\n")
}

func wrap(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
