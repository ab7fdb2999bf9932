package domain

import (
	"strings"
	"time"
)

// Sender identifies who authored a Message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// AgentCategory labels which specialised assistant produced a reply.
type AgentCategory string

const (
	AgentNone              AgentCategory = ""
	AgentGeneralSupport    AgentCategory = "General Support"
	AgentProductSpecialist AgentCategory = "Product Specialist"
	AgentTechnicalSupport  AgentCategory = "Technical Support"
)

// AgentCategories lists the known categories in display order.
var AgentCategories = []AgentCategory{
	AgentGeneralSupport,
	AgentProductSpecialist,
	AgentTechnicalSupport,
}

// ParseAgentCategory matches s against the known categories, ignoring case and
// surrounding whitespace.
func ParseAgentCategory(s string) (AgentCategory, bool) {
	s = strings.TrimSpace(s)
	for _, c := range AgentCategories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return AgentNone, false
}

// Message is one entry of the client-side conversation. Messages are never
// mutated after creation.
type Message struct {
	ID        uint64
	Content   string
	Sender    Sender
	Timestamp time.Time
	Agent     AgentCategory
}

func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}
