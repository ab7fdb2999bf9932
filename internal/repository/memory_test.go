package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat/internal/domain"
)

var _ ReadWriter = (*Memory)(nil)
var _ ReadWriter = (*Client)(nil)

func TestMemory_SaveAndReadBack(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	turns, err := m.GetConversationTurnCount(ctx, "c1")
	require.NoError(t, err)
	require.Zero(t, turns)

	require.NoError(t, m.SaveCompletedTurn(ctx, "c1", "q1", domain.Reply{Text: "a1", Agent: domain.AgentGeneralSupport}, 1))
	require.NoError(t, m.SaveCompletedTurn(ctx, "c1", "q2", domain.Reply{Text: "a2"}, 2))
	require.NoError(t, m.SaveCompletedTurn(ctx, "c2", "other", domain.Reply{Text: "x"}, 1))

	turns, err = m.GetConversationTurnCount(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 2, turns)

	history, err := m.GetHistory(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "q1", history[0].Question)
	require.Equal(t, domain.AgentGeneralSupport, history[0].Agent)
	require.Equal(t, domain.TurnStatusComplete, history[1].Status)
}

func TestMemory_GetHistory_LimitKeepsMostRecent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, m.SaveCompletedTurn(ctx, "c1", fmt.Sprintf("q%d", i), domain.Reply{Text: "a"}, i))
	}

	history, err := m.GetHistory(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "q4", history[0].Question)
	require.Equal(t, "q5", history[1].Question)
}

func TestMemory_GetHistory_ReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveCompletedTurn(ctx, "c1", "q1", domain.Reply{Text: "a1"}, 1))

	history, err := m.GetHistory(ctx, "c1", 0)
	require.NoError(t, err)
	history[0].Question = "mutated"

	again, err := m.GetHistory(ctx, "c1", 0)
	require.NoError(t, err)
	require.Equal(t, "q1", again[0].Question)
}

func TestMemory_SaveRejectsStaleTurnCount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveCompletedTurn(ctx, "c1", "q1", domain.Reply{Text: "a1"}, 1))

	err := m.SaveCompletedTurn(ctx, "c1", "q1 again", domain.Reply{Text: "a1"}, 1)
	require.ErrorIs(t, err, domain.ErrTurnConflict)
	err = m.SaveCompletedTurn(ctx, "c2", "skipped", domain.Reply{Text: "x"}, 3)
	require.ErrorIs(t, err, domain.ErrTurnConflict)

	history, err := m.GetHistory(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	turns, err := m.GetConversationTurnCount(ctx, "c2")
	require.NoError(t, err)
	require.Zero(t, turns)
}

func TestMemory_ConcurrentWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				turns, err := m.GetConversationTurnCount(ctx, "c1")
				if err != nil {
					return
				}
				if m.SaveCompletedTurn(ctx, "c1", fmt.Sprintf("q%d", i), domain.Reply{Text: "a"}, turns+1) == nil {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	history, err := m.GetHistory(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, history, 20)
	turns, err := m.GetConversationTurnCount(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 20, turns)
}
