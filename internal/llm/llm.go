package llm

import (
	"context"
	"errors"
)

// ErrCompletion indicates the completion backend failed to produce a reply.
// There is no fallback for these failures; callers surface them directly.
var ErrCompletion = errors.New("completion service error")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params carries optional sampling parameters passed through to the backend.
// Nil fields are omitted from the request.
type Params struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int64
	Seed        *int64
}

// Service converts an ordered list of role-tagged messages into a reply.
type Service interface {
	Chat(ctx context.Context, messages []Message, params *Params) (string, error)
}
