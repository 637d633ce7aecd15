package store

import (
	"time"

	"github.com/google/uuid"
)

// UseCase is the topic scope of a conversation. It selects the system prompt
// and topical guardrails for completion requests.
type UseCase string

const (
	UseCaseDefault        UseCase = "Default"
	UseCaseHealthcare     UseCase = "Healthcare"
	UseCaseBanking        UseCase = "Banking"
	UseCaseEducation      UseCase = "Education"
	UseCaseECommerce      UseCase = "E-commerce"
	UseCaseLeadGeneration UseCase = "Lead Generation"
)

// UseCaseFromString normalizes free-form input to a known use case.
// Unknown values fall back to Default.
func UseCaseFromString(s string) UseCase {
	switch UseCase(s) {
	case UseCaseHealthcare, UseCaseBanking, UseCaseEducation, UseCaseECommerce, UseCaseLeadGeneration:
		return UseCase(s)
	default:
		return UseCaseDefault
	}
}

// Role identifies who authored a message. A transcript can carry human-agent
// interjections next to user/assistant turns, hence the extended set.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAgent     Role = "agent"
	RoleAdmin     Role = "admin"
)

// Attachment is a descriptor produced by the attachment store collaborator.
// The transcript only records it; the bytes live elsewhere.
type Attachment struct {
	Filename      string `json:"filename"`
	OriginalName  string `json:"original_name"`
	MimeType      string `json:"mime_type"`
	Path          string `json:"path"`
	ExtractedText string `json:"extracted_text,omitempty"`
	Size          int64  `json:"size"`
}

type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedTs   int64        `json:"created_ts"`
}

// NewMessage creates a message with a fresh id and timestamp.
func NewMessage(role Role, content string, attachments []Attachment) Message {
	return Message{
		ID:          uuid.NewString(),
		Role:        role,
		Content:     content,
		Attachments: attachments,
		CreatedTs:   time.Now().Unix(),
	}
}

// Conversation is one AI chat thread. Messages are ordered by insertion;
// the edit flow replaces a suffix, never reorders.
type Conversation struct {
	UID       string
	UseCase   UseCase
	Messages  []Message
	CreatedTs int64
	UpdatedTs int64
	ID        int32
	CreatorID int32 // 0 for anonymous sessions
}

type FindConversation struct {
	ID        *int32
	UID       *string
	CreatorID *int32
}

// UpdateConversationMessages atomically replaces the whole message sequence
// of one conversation row, scoped to (id, creator) to prevent cross-tenant
// writes.
type UpdateConversationMessages struct {
	Messages  []Message
	UpdatedTs int64
	ID        int32
	CreatorID int32
}

type DeleteConversation struct {
	UID       string
	CreatorID int32
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	UID                string  `json:"conversationId"`
	UseCase            UseCase `json:"useCase"`
	LastMessagePreview string  `json:"lastMessage"`
	UpdatedTs          int64   `json:"updatedAt"`
	MessageCount       int     `json:"messageCount"`
}

const previewLimit = 50

// preview shortens message content for the conversation list.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
