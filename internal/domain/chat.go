package domain

// ChatMessage is the provider-agnostic chat message shape used when building
// prompts for LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is what a responder produced for one question.
type Reply struct {
	Text  string
	Agent AgentCategory
}

// Question is the input handed to a responder for one backend turn.
type Question struct {
	ConversationID string
	Text           string
	History        []Turn
}
