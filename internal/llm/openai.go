package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"tutor-backend/internal/database"
)

// OpenAIService talks to any OpenAI-compatible chat completion endpoint. The
// default deployment points it at a local llamafile server, which serves the
// same API under /v1.
type OpenAIService struct {
	client openai.Client
	model  string
}

func NewOpenAIService(baseURL, model string, timeout time.Duration) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(
			option.WithBaseURL(baseURL+"/v1"),
			option.WithAPIKey("sk-no-key-required"),
			option.WithHTTPClient(&http.Client{Timeout: timeout}),
			// Every failure is reported to the caller as a single attempt;
			// the only recovery path is the retrieval fallback upstream.
			option.WithMaxRetries(0),
		),
		model: model,
	}
}

func (s *OpenAIService) Chat(ctx context.Context, messages []Message, params *Params) (string, error) {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case database.RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case database.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}

	chatOpts := openai.ChatCompletionNewParams{
		Messages: converted,
		Model:    s.model,
	}
	if params != nil {
		if params.Temperature != nil {
			chatOpts.Temperature = openai.Float(*params.Temperature)
		}
		if params.TopP != nil {
			chatOpts.TopP = openai.Float(*params.TopP)
		}
		if params.MaxTokens != nil {
			chatOpts.MaxTokens = openai.Int(*params.MaxTokens)
		}
		if params.Seed != nil {
			chatOpts.Seed = openai.Int(*params.Seed)
		}
	}

	res, err := s.client.Chat.Completions.New(ctx, chatOpts)
	if err != nil {
		slog.Error("chat completion request failed", "model", s.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: backend returned no choices", ErrCompletion)
	}

	return res.Choices[0].Message.Content, nil
}
