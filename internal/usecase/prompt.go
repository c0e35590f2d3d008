package usecase

import (
	"strings"

	"artifact-chat/internal/domain"
)

// buildPromptMessages orders the conversation as system prompt, prior turns,
// then the current user message. Only user and assistant turns are replayed.
func buildPromptMessages(systemPrompt, message string, history []domain.Message) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: strings.TrimSpace(systemPrompt),
	})
	for _, m := range history {
		if msg, ok := historyToPromptMessage(m); ok {
			messages = append(messages, msg)
		}
	}
	return append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: message,
	})
}

func historyToPromptMessage(m domain.Message) (domain.ChatMessage, bool) {
	if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
		return domain.ChatMessage{}, false
	}
	return domain.ChatMessage{Role: m.Role, Content: m.Content}, true
}
