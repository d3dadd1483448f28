package api

import (
	"tutor-backend/internal/database"
	"tutor-backend/internal/llm"
	"tutor-backend/pkg/api"
)

func chatMetadata(c database.Chat) api.ChatMetadata {
	return api.ChatMetadata{
		ChatID:    c.ChatID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func chatMessages(messages []database.Message) []api.ChatMessage {
	resp := make([]api.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, api.ChatMessage{
			MessageID: msg.MessageID,
			ChatID:    msg.ChatID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	return resp
}

func completionMessages(messages []api.Message) []llm.Message {
	converted := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return converted
}

func samplingParams(req api.CompletionRequest) *llm.Params {
	return &llm.Params{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Seed:        req.Seed,
	}
}
