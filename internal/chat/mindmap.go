package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tutor-backend/internal/database"
	"tutor-backend/internal/llm"
)

const mindmapSystemPrompt = `Generate a structured learning roadmap in markdown format.
The roadmap should have a main topic as heading level 1 (#),
major categories as heading level 2 (##),
and bullet points (-) for specific topics.
Keep it concise and well-organized.`

// Mindmapper derives a markdown outline from accumulated chat history with a
// single completion call. No retrieval is involved and no fallback exists.
type Mindmapper struct {
	store *Store
	llm   llm.Service
}

func NewMindmapper(store *Store, svc llm.Service) *Mindmapper {
	return &Mindmapper{store: store, llm: svc}
}

func (m *Mindmapper) Generate(ctx context.Context, chatID uuid.UUID) (string, error) {
	history, err := m.store.ListMessages(chatID, 0)
	if err != nil {
		return "", err
	}

	var transcript strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}

	messages := []llm.Message{
		{Role: database.RoleSystem, Content: mindmapSystemPrompt},
		{Role: database.RoleUser, Content: "Based on this chat history, create a learning roadmap:\n" + transcript.String()},
	}

	return m.llm.Chat(ctx, messages, nil)
}
