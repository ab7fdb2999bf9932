package conversation

import (
	"time"

	"support-chat/internal/domain"
)

// Store is the ordered in-memory message list plus the backend session
// token. It is not safe for concurrent use; Controller serialises access.
type Store struct {
	messages []domain.Message
	nextID   uint64
	session  string
	now      func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Append creates a message and adds it to the end of the list. IDs keep
// increasing across Clear so they stay unique for the life of the Store.
func (s *Store) Append(content string, sender domain.Sender, agent domain.AgentCategory) domain.Message {
	s.nextID++
	if sender != domain.SenderAssistant {
		agent = domain.AgentNone
	}
	msg := domain.Message{
		ID:        s.nextID,
		Content:   content,
		Sender:    sender,
		Timestamp: s.now(),
		Agent:     agent,
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages returns a copy of the list in append order.
func (s *Store) Messages() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	return len(s.messages)
}

func (s *Store) Session() string {
	return s.session
}

func (s *Store) SetSession(token string) {
	s.session = token
}

// Clear drops every message and the session token.
func (s *Store) Clear() {
	s.messages = nil
	s.session = ""
}
