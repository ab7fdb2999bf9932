package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"support-chat/internal/chatapi"
	"support-chat/internal/conversation"
	"support-chat/internal/domain"
)

// RunLines drives the controller from line-oriented input, for pipes and
// dumb terminals. Each non-empty line is one turn; /retry, /clear and /quit
// are commands.
func RunLines(ctx context.Context, ctrl *conversation.Controller, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		var (
			reply chatapi.Reply
			err   error
		)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			ctrl.Reset()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case "/retry":
			reply, err = ctrl.RetryLast(ctx)
		default:
			reply, err = ctrl.Send(ctx, line)
		}
		printTurn(out, reply, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return sc.Err()
}

func printTurn(out io.Writer, reply chatapi.Reply, err error) {
	switch {
	case errors.Is(err, conversation.ErrNothingToRetry):
		fmt.Fprintln(out, "Nothing to retry.")
	case err != nil:
		fmt.Fprintf(out, "Error: %s (type /retry to try again)\n", chatapi.UserMessage(err))
	default:
		fmt.Fprintf(out, "[%s] %s\n", agentLabel(reply.Agent), reply.Text)
	}
}

func agentLabel(a domain.AgentCategory) string {
	if a == domain.AgentNone {
		return "Assistant"
	}
	return string(a)
}
