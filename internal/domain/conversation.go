package domain

import "errors"

// TurnStatusComplete marks a turn whose answer was produced and stored.
const TurnStatusComplete = "complete"

// ErrTurnConflict is returned when a turn is saved against a turn count that
// another writer has already moved past.
var ErrTurnConflict = errors.New("conversation turn count changed concurrently")

// Turn is a single persisted question/answer pair on the backend.
type Turn struct {
	PK             string
	SK             string
	ConversationID string
	Question       string
	Answer         string
	Agent          AgentCategory
	Status         string
	TTL            int64
}

// ConversationMeta stores aggregate conversation state.
type ConversationMeta struct {
	PK             string
	SK             string
	ConversationID string
	LastActivity   string
	Turns          int
	TTL            int64
}
