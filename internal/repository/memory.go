package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"support-chat/internal/domain"
)

// Memory keeps conversation state in process memory. It backs the local
// server when no DynamoDB table is configured; state is lost on restart.
type Memory struct {
	mu    sync.RWMutex
	turns map[string][]domain.Turn
	meta  map[string]domain.ConversationMeta
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		turns: make(map[string][]domain.Turn),
		meta:  make(map[string]domain.ConversationMeta),
		now:   time.Now,
	}
}

func (m *Memory) GetConversationTurnCount(_ context.Context, conversationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta[conversationID].Turns, nil
}

func (m *Memory) GetHistory(_ context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.turns[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (m *Memory) SaveCompletedTurn(_ context.Context, conversationID, question string, reply domain.Reply, turns int) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta[conversationID].Turns != turns-1 {
		return fmt.Errorf("repository: SaveCompletedTurn: %w", domain.ErrTurnConflict)
	}
	m.turns[conversationID] = append(m.turns[conversationID], NewTurn(conversationID, question, reply, now))
	m.meta[conversationID] = NewConversationMeta(conversationID, turns, now)
	return nil
}
