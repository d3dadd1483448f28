package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tutor-backend/internal/chat"
	"tutor-backend/internal/database"
	"tutor-backend/internal/index"
	"tutor-backend/internal/ingest"
	"tutor-backend/internal/llm"
	"tutor-backend/pkg/api"
)

// routingLLM answers differently depending on which path produced the prompt,
// so tests can tell retrieval-backed completions from direct ones.
type routingLLM struct{}

func (routingLLM) Chat(ctx context.Context, messages []llm.Message, params *llm.Params) (string, error) {
	last := messages[len(messages)-1].Content
	switch {
	case strings.Contains(last, "Context information is below."):
		return "from-index", nil
	case strings.Contains(last, "learning roadmap"):
		return "# Roadmap", nil
	default:
		return "direct-reply", nil
	}
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	svc := routingLLM{}
	indexes := index.NewService(t.TempDir(), staticEmbedder{}, svc, 256, 5)
	store := chat.NewStore(db)

	service := NewChatService(
		store,
		chat.NewRouter(store, svc, indexes),
		chat.NewMindmapper(store, svc),
		ingest.NewIngestor(ingest.NewDefaultParser(), indexes),
	)

	r := chi.NewRouter()
	service.AddRoutes(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func createChat(t *testing.T, r chi.Router, title string) api.CreateChatResponse {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/chats", api.CreateChatRequest{Title: title})
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[api.CreateChatResponse](t, rec)
}

func TestCreateChatReturnsSeededConversation(t *testing.T) {
	r := newTestRouter(t)

	created := createChat(t, r, "Algebra Help")
	assert.Equal(t, "Algebra Help", created.Title)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, database.RoleAssistant, created.Messages[0].Role)
	assert.Equal(t, chat.WelcomeMessage, created.Messages[0].Content)

	rec := doJSON(t, r, http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chats := decode[[]api.ChatMetadata](t, rec)
	require.Len(t, chats, 1)
	assert.Equal(t, created.ChatID, chats[0].ChatID)
}

func TestCompletionPersistsBothTurns(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "")

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/chats/%s/completion", created.ChatID), api.CompletionRequest{
		Messages: []api.Message{{Role: database.RoleUser, Content: "What is a derivative?"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "direct-reply", decode[api.MessageResponse](t, rec).Message)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/chats/%s/messages", created.ChatID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode[[]api.ChatMessage](t, rec)
	require.Len(t, messages, 3)
	assert.Equal(t, database.RoleUser, messages[1].Role)
	assert.Equal(t, "What is a derivative?", messages[1].Content)
	assert.Equal(t, database.RoleAssistant, messages[2].Role)
	assert.Equal(t, "direct-reply", messages[2].Content)
}

func TestCompletionEmptyMessages(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "")

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/chats/%s/completion", created.ChatID), api.CompletionRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[errorDetail](t, rec).Detail)
}

func TestCompletionUnknownChat(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/chats/%s/completion", uuid.New()), api.CompletionRequest{
		Messages: []api.Message{{Role: database.RoleUser, Content: "hi"}},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[errorDetail](t, rec).Detail)
}

func TestCompletionInvalidChatID(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/chats/not-a-uuid/completion", api.CompletionRequest{
		Messages: []api.Message{{Role: database.RoleUser, Content: "hi"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmbedThenCompletionUsesRetrieval(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "Biology")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Photosynthesis converts light energy into chemical energy."))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/chats/%s/embed", created.ChatID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully embedded document", decode[api.MessageResponse](t, rec).Message)

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/chats/%s/completion", created.ChatID), api.CompletionRequest{
		Messages: []api.Message{{Role: database.RoleUser, Content: "What does photosynthesis do?"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-index", decode[api.MessageResponse](t, rec).Message)
}

func TestEmbedMissingFile(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", "notes.txt"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/chats/%s/embed", created.ChatID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMindmap(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "")

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/chats/%s/generate-mindmap", created.ChatID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Roadmap", decode[api.MessageResponse](t, rec).Message)
}

func TestGetMessagesLimit(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "")

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/chats/%s/completion", created.ChatID), api.CompletionRequest{
		Messages: []api.Message{{Role: database.RoleUser, Content: "first question"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/chats/%s/messages?limit=2", created.ChatID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.ChatMessage](t, rec), 2)
}

func TestDeleteChat(t *testing.T) {
	r := newTestRouter(t)
	created := createChat(t, r, "")

	rec := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/chats/%s", created.ChatID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.ChatMetadata](t, rec))
}
