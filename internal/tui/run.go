package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"support-chat/internal/conversation"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run starts the full-screen UI when in is a terminal and falls back to
// line mode otherwise.
func Run(ctx context.Context, ctrl *conversation.Controller, in, out *os.File, logger zerolog.Logger) error {
	if !IsTerminal(in) {
		logger.Debug().Msg("stdin is not a terminal, using line mode")
		return RunLines(ctx, ctrl, in, out)
	}

	p := tea.NewProgram(
		New(ctx, ctrl, WithLogger(logger)),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
