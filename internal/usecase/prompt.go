package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"support-chat/internal/domain"
)

type routedAnswerResponse struct {
	AgentType string `json:"agent_type"`
	Answer    string `json:"answer"`
}

func buildPromptMessages(pinnedPrompt, question string, history []domain.Turn) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: "system", Content: buildPolicyPrompt()},
	}
	if pinned := strings.TrimSpace(pinnedPrompt); pinned != "" {
		messages = append(messages, domain.ChatMessage{Role: "system", Content: pinned})
	}

	for _, t := range history {
		messages = append(messages, historyToPromptMessages(t)...)
	}

	messages = append(messages, domain.ChatMessage{
		Role:    "user",
		Content: question,
	})
	return messages
}

func buildPolicyPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are the customer support desk of an online store.",
		"",
		"Task:",
		"Decide which support agent should handle the current question, then answer it as that agent.",
		"",
		"Agents:",
		agentDescriptions(),
		"",
		"Behavior Rules:",
		behaviorRules(),
		"",
		"Output Contract:",
		outputContract(),
	}, "\n")
}

func agentDescriptions() string {
	return strings.Join([]string{
		"- " + string(domain.AgentGeneralSupport) + ": orders, shipping, returns, billing and account questions.",
		"- " + string(domain.AgentProductSpecialist) + ": product features, comparisons and recommendations.",
		"- " + string(domain.AgentTechnicalSupport) + ": setup, troubleshooting and error messages.",
	}, "\n")
}

func historyToPromptMessages(t domain.Turn) []domain.ChatMessage {
	if t.Status != domain.TurnStatusComplete {
		return nil
	}
	question := strings.TrimSpace(t.Question)
	answer := strings.TrimSpace(t.Answer)
	if question == "" || answer == "" {
		return nil
	}
	return []domain.ChatMessage{
		{Role: "user", Content: question},
		{Role: "assistant", Content: answer},
	}
}

func behaviorRules() string {
	return strings.Join([]string{
		"1) Answer only the current user question in this request.",
		"2) Keep responses friendly, professional and concise. Markdown is allowed.",
		"3) Use completed conversation history for context.",
		"4) Never invent order numbers, prices or policies.",
		"5) If you cannot help, say so and suggest contacting a human agent.",
	}, "\n")
}

func outputContract() string {
	return "Return JSON only with keys agent_type (string) and answer (string). " +
		"agent_type must be exactly one of the agent names listed above. " +
		"answer is the final user-facing reply."
}

func parseRoutedAnswer(raw string) (routedAnswerResponse, error) {
	var out routedAnswerResponse
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return routedAnswerResponse{}, fmt.Errorf("usecase: decode routed answer: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return routedAnswerResponse{}, errors.New("usecase: decode routed answer: multiple JSON values")
		}
		return routedAnswerResponse{}, fmt.Errorf("usecase: decode routed answer trailing data: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return routedAnswerResponse{}, errors.New("usecase: routed answer missing answer")
	}
	return out, nil
}
