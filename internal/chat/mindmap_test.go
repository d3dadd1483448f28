package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-backend/internal/database"
	"tutor-backend/internal/llm"
)

func TestGenerateMindmap(t *testing.T) {
	store := newTestStore(t)
	svc := &stubLLM{reply: "# Calculus\n## Derivatives\n- limits"}
	mindmapper := NewMindmapper(store, svc)

	created, err := store.CreateChat("Calculus")
	require.NoError(t, err)
	_, err = store.AppendMessage(created.ChatID, database.RoleUser, "Explain derivatives")
	require.NoError(t, err)

	markdown, err := mindmapper.Generate(context.Background(), created.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "# Calculus\n## Derivatives\n- limits", markdown)

	require.Len(t, svc.lastMsgs, 2)
	assert.Equal(t, database.RoleSystem, svc.lastMsgs[0].Role)
	assert.Contains(t, svc.lastMsgs[1].Content, "user: Explain derivatives")
	assert.Contains(t, svc.lastMsgs[1].Content, "assistant: "+WelcomeMessage)
}

func TestGenerateMindmapSurfacesCompletionError(t *testing.T) {
	store := newTestStore(t)
	svc := &stubLLM{err: llm.ErrCompletion}
	mindmapper := NewMindmapper(store, svc)

	created, err := store.CreateChat("test")
	require.NoError(t, err)

	_, err = mindmapper.Generate(context.Background(), created.ChatID)
	assert.ErrorIs(t, err, llm.ErrCompletion)
}
