package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"support-chat/internal/domain"
)

func TestStore_AppendAssignsIncreasingIDs(t *testing.T) {
	s := NewStore(nil)
	a := s.Append("a", domain.SenderUser, domain.AgentNone)
	b := s.Append("b", domain.SenderAssistant, domain.AgentProductSpecialist)
	require.Less(t, a.ID, b.ID)
	require.Equal(t, domain.AgentProductSpecialist, b.Agent)

	s.Clear()
	c := s.Append("c", domain.SenderUser, domain.AgentNone)
	require.Greater(t, c.ID, b.ID)
	require.Equal(t, 1, s.Len())
}

func TestStore_UserMessagesNeverCarryAgent(t *testing.T) {
	s := NewStore(nil)
	m := s.Append("hi", domain.SenderUser, domain.AgentTechnicalSupport)
	require.Equal(t, domain.AgentNone, m.Agent)
}

func TestStore_MessagesIsACopy(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStore(func() time.Time { return now })
	s.Append("x", domain.SenderUser, domain.AgentNone)

	out := s.Messages()
	out[0].Content = "mutated"
	require.Equal(t, "x", s.Messages()[0].Content)
	require.Equal(t, now, s.Messages()[0].Timestamp)
}

func TestStore_ClearDropsSession(t *testing.T) {
	s := NewStore(nil)
	s.SetSession("conv-1")
	s.Clear()
	require.Empty(t, s.Session())
}
