package api

import (
	"time"

	"github.com/google/uuid"
)

type ChatMetadata struct {
	ChatID    uuid.UUID `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	MessageID uint      `json:"message_id"`
	ChatID    uuid.UUID `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateChatRequest struct {
	Title string `json:"title"`
}

type CreateChatResponse struct {
	ChatMetadata
	Messages []ChatMessage `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int64    `json:"max_tokens,omitempty"`
	Seed        *int64    `json:"seed,omitempty"`
}

// MessageResponse is shared by the completion, embed, and mindmap endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

type ListMessagesQuery struct {
	Limit int `schema:"limit"`
}
