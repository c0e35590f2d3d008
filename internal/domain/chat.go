package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by the usecase
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is a single persisted turn of a user's conversation with one artifact.
type Message struct {
	UserID     string
	ArtifactID string
	Role       string
	Content    string
	Timestamp  time.Time
}

// VoiceSettings tunes text-to-speech output for one artifact voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Voice identifies a text-to-speech voice and its settings.
type Voice struct {
	ID       string
	Settings VoiceSettings
}
