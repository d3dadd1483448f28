package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-backend/internal/database"
)

func completionResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   "LLaMA_CPP",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func TestOpenAIServiceChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionResponse("hello there")) //nolint:errcheck
	}))
	defer server.Close()

	svc := NewOpenAIService(server.URL, "LLaMA_CPP", time.Minute)

	reply, err := svc.Chat(context.Background(), []Message{
		{Role: database.RoleSystem, Content: "You are a tutor."},
		{Role: database.RoleUser, Content: "hi"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestOpenAIServiceBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewOpenAIService(server.URL, "LLaMA_CPP", time.Minute)

	_, err := svc.Chat(context.Background(), []Message{{Role: database.RoleUser, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, ErrCompletion)
}

func TestOpenAIServiceNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}}) //nolint:errcheck
	}))
	defer server.Close()

	svc := NewOpenAIService(server.URL, "LLaMA_CPP", time.Minute)

	_, err := svc.Chat(context.Background(), []Message{{Role: database.RoleUser, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, ErrCompletion)
}
