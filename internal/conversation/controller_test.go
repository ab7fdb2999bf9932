package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"support-chat/internal/chatapi"
	"support-chat/internal/domain"
)

type sendCall struct {
	text    string
	session string
}

type fakeTransport struct {
	mu      sync.Mutex
	replies []chatapi.Reply
	errs    []error
	calls   []sendCall
}

func (f *fakeTransport) Send(_ context.Context, text, session string) (chatapi.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, sendCall{text: text, session: session})
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	var reply chatapi.Reply
	if idx < len(f.replies) {
		reply = f.replies[idx]
	}
	return reply, err
}

// blockingTransport holds every request until released or cancelled.
type blockingTransport struct {
	started chan struct{}
	release chan chatapi.Reply
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{started: make(chan struct{}, 4), release: make(chan chatapi.Reply, 4)}
}

func (b *blockingTransport) Send(ctx context.Context, _, _ string) (chatapi.Reply, error) {
	b.started <- struct{}{}
	select {
	case r := <-b.release:
		return r, nil
	case <-ctx.Done():
		return chatapi.Reply{}, ctx.Err()
	}
}

var serverErr = &chatapi.Error{Kind: chatapi.KindServerError, StatusCode: 500}

func newTestController(t *testing.T, tr Transport) *Controller {
	t.Helper()
	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	c, err := NewController(tr, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return c
}

func TestNewController_NilTransport(t *testing.T) {
	_, err := NewController(nil)
	require.Error(t, err)
}

func TestSend_HappyPath(t *testing.T) {
	tr := &fakeTransport{replies: []chatapi.Reply{{Text: "Hi there!", Agent: domain.AgentGeneralSupport}}}
	c := newTestController(t, tr)

	_, err := c.Send(context.Background(), "Hello")
	require.NoError(t, err)
	require.Equal(t, []sendCall{{text: "Hello"}}, tr.calls)

	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Len(t, snap.Messages, 2)
	require.Equal(t, domain.SenderUser, snap.Messages[0].Sender)
	require.Equal(t, "Hello", snap.Messages[0].Content)
	require.Equal(t, domain.AgentNone, snap.Messages[0].Agent)
	require.Equal(t, domain.SenderAssistant, snap.Messages[1].Sender)
	require.Equal(t, "Hi there!", snap.Messages[1].Content)
	require.Equal(t, domain.AgentGeneralSupport, snap.Messages[1].Agent)
	require.Less(t, snap.Messages[0].ID, snap.Messages[1].ID)
	require.Empty(t, snap.ErrorMessage)
}

func TestSubmit_AppendsUserMessageBeforeResponse(t *testing.T) {
	c := newTestController(t, &fakeTransport{})

	p, err := c.Submit("  Where is my order?  ")
	require.NoError(t, err)
	require.Equal(t, "Where is my order?", p.Text)

	snap := c.Snapshot()
	require.Equal(t, StateAwaitingResponse, snap.State)
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "Where is my order?", snap.Messages[0].Content)
}

func TestSubmit_RejectsEmptyInput(t *testing.T) {
	c := newTestController(t, &fakeTransport{})
	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := c.Submit(in)
		require.ErrorIs(t, err, ErrEmptyMessage)
	}
	require.Empty(t, c.Snapshot().Messages)
	require.Equal(t, StateIdle, c.State())
}

func TestSubmit_BusyWhileAwaiting(t *testing.T) {
	c := newTestController(t, &fakeTransport{})
	_, err := c.Submit("first")
	require.NoError(t, err)

	_, err = c.Submit("second")
	require.ErrorIs(t, err, ErrBusy)
	require.Len(t, c.Snapshot().Messages, 1)
}

func TestSessionToken_EchoedOnlyOnceAssigned(t *testing.T) {
	tr := &fakeTransport{replies: []chatapi.Reply{
		{Text: "one"},
		{Text: "two", SessionToken: "conv-1"},
		{Text: "three"},
	}}
	c := newTestController(t, tr)

	for _, q := range []string{"a", "b", "c"} {
		_, err := c.Send(context.Background(), q)
		require.NoError(t, err)
	}
	require.Equal(t, []sendCall{
		{text: "a"},
		{text: "b"},
		{text: "c", session: "conv-1"},
	}, tr.calls)
	require.Equal(t, "conv-1", c.Snapshot().SessionToken)
}

func TestFailure_KeepsUserMessageAndRecordsError(t *testing.T) {
	tr := &fakeTransport{errs: []error{serverErr}}
	c := newTestController(t, tr)

	_, err := c.Send(context.Background(), "Hello")
	require.ErrorIs(t, err, serverErr)

	snap := c.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "Hello", snap.Messages[0].Content)
	require.Equal(t, "Server error occurred. Please try again.", snap.ErrorMessage)
}

func TestRetry_ResendsWithoutDuplicating(t *testing.T) {
	tr := &fakeTransport{
		errs:    []error{serverErr, nil},
		replies: []chatapi.Reply{{}, {Text: "Recovered", Agent: domain.AgentTechnicalSupport}},
	}
	c := newTestController(t, tr)

	_, err := c.Send(context.Background(), "My router blinks red")
	require.Error(t, err)

	_, err = c.RetryLast(context.Background())
	require.NoError(t, err)
	require.Equal(t, "My router blinks red", tr.calls[1].text)

	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "My router blinks red", snap.Messages[0].Content)
	require.Equal(t, "Recovered", snap.Messages[1].Content)
	require.Nil(t, snap.Err)
}

func TestRetry_IsUnboundedUserDriven(t *testing.T) {
	tr := &fakeTransport{errs: []error{serverErr, serverErr, serverErr}}
	c := newTestController(t, tr)

	_, _ = c.Send(context.Background(), "x")
	for i := 0; i < 2; i++ {
		_, err := c.RetryLast(context.Background())
		require.Error(t, err)
		require.Equal(t, StateError, c.State())
	}
	require.Len(t, tr.calls, 3)
	require.Len(t, c.Snapshot().Messages, 1)
}

func TestRetry_OnlyFromError(t *testing.T) {
	c := newTestController(t, &fakeTransport{replies: []chatapi.Reply{{Text: "ok"}}})
	_, err := c.Retry()
	require.ErrorIs(t, err, ErrNothingToRetry)

	_, err = c.Send(context.Background(), "hi")
	require.NoError(t, err)
	_, err = c.Retry()
	require.ErrorIs(t, err, ErrNothingToRetry)
}

func TestReset_ClearsEverything(t *testing.T) {
	tr := &fakeTransport{
		replies: []chatapi.Reply{{Text: "ok", SessionToken: "conv-9"}},
		errs:    []error{nil, serverErr},
	}
	c := newTestController(t, tr)
	_, _ = c.Send(context.Background(), "one")
	_, _ = c.Send(context.Background(), "two")
	require.Equal(t, StateError, c.State())

	c.Reset()
	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Empty(t, snap.Messages)
	require.Empty(t, snap.SessionToken)
	require.Nil(t, snap.Err)

	_, err := c.Retry()
	require.ErrorIs(t, err, ErrNothingToRetry)
}

func TestReset_DiscardsStaleOutcome(t *testing.T) {
	tr := newBlockingTransport()
	c := newTestController(t, tr)

	p, err := c.Submit("before reset")
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() { done <- c.Exec(context.Background(), p) }()
	<-tr.started

	c.Reset()
	o := <-done
	require.ErrorIs(t, o.Err, context.Canceled)
	require.False(t, c.Resolve(o))

	snap := c.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Empty(t, snap.Messages)
}

func TestReset_LateSuccessFromOldGenerationIsIgnored(t *testing.T) {
	c := newTestController(t, &fakeTransport{})
	old, err := c.Submit("old")
	require.NoError(t, err)
	c.Reset()

	fresh, err := c.Submit("new")
	require.NoError(t, err)

	require.False(t, c.Resolve(Outcome{Reply: chatapi.Reply{Text: "for old"}, pending: old}))
	require.True(t, c.Resolve(Outcome{Reply: chatapi.Reply{Text: "for new"}, pending: fresh}))

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "new", snap.Messages[0].Content)
	require.Equal(t, "for new", snap.Messages[1].Content)
}

func TestSnapshot_LastAssistantMessage(t *testing.T) {
	c := newTestController(t, &fakeTransport{replies: []chatapi.Reply{{Text: "a1"}, {Text: "a2"}}})
	_, ok := c.Snapshot().LastAssistantMessage()
	require.False(t, ok)

	_, _ = c.Send(context.Background(), "q1")
	_, _ = c.Send(context.Background(), "q2")
	msg, ok := c.Snapshot().LastAssistantMessage()
	require.True(t, ok)
	require.Equal(t, "a2", msg.Content)
}

func TestExec_CallerContextCancels(t *testing.T) {
	tr := newBlockingTransport()
	c := newTestController(t, tr)
	p, err := c.Submit("q")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- c.Exec(ctx, p) }()
	<-tr.started
	cancel()

	o := <-done
	require.True(t, errors.Is(o.Err, context.Canceled))
	require.True(t, c.Resolve(o))
	require.Equal(t, StateError, c.State())
}
