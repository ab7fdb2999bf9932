package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat/internal/chatapi"
	"support-chat/internal/conversation"
	"support-chat/internal/domain"
)

func TestRunLines(t *testing.T) {
	tr := &scriptedTransport{
		replies: []chatapi.Reply{
			{Text: "We ship worldwide.", Agent: domain.AgentGeneralSupport},
			{},
			{Text: "Recovered."},
		},
		errs: []error{nil, &chatapi.Error{Kind: chatapi.KindEndpointMisconfigured, StatusCode: 404}},
	}
	ctrl, err := conversation.NewController(tr)
	require.NoError(t, err)

	in := strings.NewReader("Do you ship abroad?\n\n/retry-not-a-command\n/retry\n/clear\n/retry\n/quit\nignored\n")
	var out bytes.Buffer
	require.NoError(t, RunLines(context.Background(), ctrl, in, &out))

	require.Equal(t, strings.Join([]string{
		"[General Support] We ship worldwide.",
		"Error: Chat endpoint not found. Please check the API configuration. (type /retry to try again)",
		"[Assistant] Recovered.",
		"Conversation cleared.",
		"Nothing to retry.",
		"",
	}, "\n"), out.String())
	require.Equal(t, []string{"Do you ship abroad?", "/retry-not-a-command", "/retry-not-a-command"}, tr.sent())
	require.Empty(t, ctrl.Snapshot().Messages)
}

func TestRunLines_StopsOnCancelledContext(t *testing.T) {
	ctrl, err := conversation.NewController(&scriptedTransport{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err = RunLines(ctx, ctrl, strings.NewReader("one\ntwo\n"), &out)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, strings.Count(out.String(), "\n"))
}
