package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"artifact-chat/internal/domain"
)

func TestBuildPromptMessages_Order(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "q1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleSystem, Content: "stale system prompt"},
		{Role: "tool", Content: "ignored"},
		{Role: domain.RoleUser, Content: "q2"},
	}

	got := buildPromptMessages("  You are a lamp.\n", "q3", history)
	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "You are a lamp."},
		{Role: domain.RoleUser, Content: "q1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "q2"},
		{Role: domain.RoleUser, Content: "q3"},
	}, got)
}

func TestBuildPromptMessages_NoHistory(t *testing.T) {
	got := buildPromptMessages("", "hello", nil)
	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: ""},
		{Role: domain.RoleUser, Content: "hello"},
	}, got)
}
