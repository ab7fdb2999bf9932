// Package tui renders the support conversation as a bubbletea program.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"support-chat/internal/conversation"
)

const copiedFlash = 2 * time.Second

type turnFinishedMsg struct {
	outcome conversation.Outcome
}

type clearCopiedMsg struct {
	seq int
}

// Model is the root bubbletea model. Conversation state lives in the
// controller; the model only holds widgets and view state.
type Model struct {
	ctx    context.Context
	ctrl   *conversation.Controller
	logger zerolog.Logger

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	markdown bool
	copyFn   func(string) error

	width  int
	height int
	ready  bool

	// selectedID is the assistant message ctrl+y acts on; zero follows the
	// latest reply.
	selectedID uint64

	copied    bool
	copiedID  uint64
	copiedSeq int
}

type Option func(*Model)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithPlainText disables markdown rendering of assistant replies.
func WithPlainText() Option {
	return func(m *Model) {
		m.markdown = false
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		m.copyFn = fn
	}
}

func New(ctx context.Context, ctrl *conversation.Controller, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = thinkingStyle

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		logger:   zerolog.Nop(),
		input:    ta,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		markdown: true,
		copyFn:   clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.input.SetWidth(max(msg.Width-2, 10))
		if m.markdown {
			r, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle("dark"),
				glamour.WithWordWrap(m.bubbleWidth()-4),
			)
			if err != nil {
				m.logger.Debug().Err(err).Msg("markdown renderer unavailable")
			}
			m.renderer = r
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case turnFinishedMsg:
		m.selectedID = 0
		if m.ctrl.Resolve(msg.outcome) {
			m.logger.Debug().Str("state", m.ctrl.State().String()).Msg("turn resolved")
		}
		m.refresh()
		return m, m.input.Focus()

	case clearCopiedMsg:
		if msg.seq == m.copiedSeq {
			m.copied = false
			m.redraw()
		}
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.State() != conversation.StateAwaitingResponse {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+l":
		m.ctrl.Reset()
		m.input.Reset()
		m.selectedID = 0
		m.copied = false
		m.refresh()
		return m, m.input.Focus()

	case "ctrl+r":
		p, err := m.ctrl.Retry()
		if err != nil {
			return m, nil
		}
		return m.begin(p)

	case "ctrl+y":
		return m.copySelected()

	case "alt+up":
		m.moveSelection(-1)
		m.refresh()
		return m, nil

	case "alt+down":
		m.moveSelection(1)
		m.refresh()
		return m, nil

	case "enter":
		p, err := m.ctrl.Submit(m.input.Value())
		if err != nil {
			if !errors.Is(err, conversation.ErrEmptyMessage) {
				m.logger.Debug().Err(err).Msg("submit ignored")
			}
			return m, nil
		}
		m.input.Reset()
		return m.begin(p)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.ctrl.State() == conversation.StateAwaitingResponse {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// begin hands p to a command goroutine and blocks input until the
// outcome comes back as a turnFinishedMsg.
func (m Model) begin(p *conversation.Pending) (tea.Model, tea.Cmd) {
	m.input.Blur()
	m.selectedID = 0
	m.refresh()
	ctx, ctrl := m.ctx, m.ctrl
	exec := func() tea.Msg {
		return turnFinishedMsg{outcome: ctrl.Exec(ctx, p)}
	}
	return m, tea.Batch(exec, m.spinner.Tick)
}

func (m Model) copySelected() (tea.Model, tea.Cmd) {
	target, ok := m.copyTarget(m.ctrl.Snapshot())
	if !ok {
		return m, nil
	}
	if err := m.copyFn(target.Content); err != nil {
		m.logger.Debug().Err(err).Msg("copy to clipboard failed")
		return m, nil
	}
	m.copied = true
	m.copiedID = target.ID
	m.copiedSeq++
	seq := m.copiedSeq
	m.redraw()
	return m, tea.Tick(copiedFlash, func(time.Time) tea.Msg {
		return clearCopiedMsg{seq: seq}
	})
}

// refresh re-renders the conversation into the viewport and recomputes the
// layout around it. The viewport scrolls to the selected reply, or to the
// bottom when nothing is selected.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	snap := m.ctrl.Snapshot()
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-m.chromeHeight(snap), 3)
	content, selectedLine := m.renderConversation(snap)
	m.viewport.SetContent(content)
	if selectedLine >= 0 {
		m.viewport.SetYOffset(selectedLine)
		return
	}
	m.viewport.GotoBottom()
}

// redraw replaces the viewport content and keeps the scroll position.
func (m *Model) redraw() {
	if !m.ready {
		return
	}
	content, _ := m.renderConversation(m.ctrl.Snapshot())
	m.viewport.SetContent(content)
}

func (m Model) bubbleWidth() int {
	w := m.width * 3 / 4
	if w < 20 {
		w = min(m.width, 20)
	}
	return w
}
