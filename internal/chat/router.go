package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tutor-backend/internal/database"
	"tutor-backend/internal/llm"
)

// retrievalTopK is the number of passages requested from the index per query.
const retrievalTopK = 3

// Retriever answers questions from a per-chat retrieval index. Existence of
// the index artifact is the signal that routes completions through retrieval.
type Retriever interface {
	Exists(chatID uuid.UUID) bool
	Query(ctx context.Context, chatID uuid.UUID, query string, topK int) (string, error)
}

// Router decides, per completion request, whether the reply comes from the
// chat's retrieval index or from direct completion, and keeps the persisted
// chat state consistent with that decision.
type Router struct {
	store     *Store
	llm       llm.Service
	retriever Retriever
}

func NewRouter(store *Store, svc llm.Service, retriever Retriever) *Router {
	return &Router{store: store, llm: svc, retriever: retriever}
}

// Complete persists the latest user turn, produces a reply via retrieval or
// direct completion, persists the reply as an assistant turn, and returns it.
//
// The supplied message list must be non-empty and end with a user message;
// anything else fails with ErrValidation before any write happens. Retrieval
// failures and blank retrieval answers are not errors: both fall back to
// direct completion against the full message list.
func (r *Router) Complete(ctx context.Context, chatID uuid.UUID, messages []llm.Message, params *llm.Params) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: message list is empty", ErrValidation)
	}

	last := messages[len(messages)-1]
	if last.Role != database.RoleUser {
		return "", fmt.Errorf("%w: last message must have role %q, got %q", ErrValidation, database.RoleUser, last.Role)
	}

	if _, err := r.store.AppendMessage(chatID, last.Role, last.Content); err != nil {
		return "", err
	}

	var reply string
	if r.retriever.Exists(chatID) {
		answer, err := r.retriever.Query(ctx, chatID, last.Content, retrievalTopK)
		if err != nil {
			slog.Error("retrieval query failed, falling back to direct completion", "chat_id", chatID, "error", err)
		} else if strings.TrimSpace(answer) == "" {
			slog.Info("retrieval produced no answer, falling back to direct completion", "chat_id", chatID)
		} else {
			reply = answer
		}
	}

	if reply == "" {
		direct, err := r.llm.Chat(ctx, messages, params)
		if err != nil {
			return "", err
		}
		reply = direct
	}

	if _, err := r.store.AppendMessage(chatID, database.RoleAssistant, reply); err != nil {
		return "", err
	}

	return reply, nil
}
