package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"tutor-backend/internal/llm"
)

// Document is one parsed unit of an uploaded file, ready for indexing.
type Document struct {
	ID     string
	Source string
	Text   string
}

// Chunk is one embedded slice of a document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
}

// Index is the per-chat retrieval artifact. It is serialized as a whole;
// similarity search scans all chunks, which is fine at the scale of documents
// uploaded to a single chat.
type Index struct {
	ChatID uuid.UUID `json:"chat_id"`
	Chunks []Chunk   `json:"chunks"`
}

const artifactName = "index.json"

// Service builds, persists, and queries per-chat retrieval indexes. Query
// uses compact synthesis: the top-k passages are stuffed into a single
// completion call that produces the final answer.
type Service struct {
	root     string
	splitter textsplitter.TextSplitter
	embedder Embedder
	llm      llm.Service
}

func NewService(root string, embedder Embedder, svc llm.Service, chunkSize, chunkOverlap int) *Service {
	return &Service{
		root: root,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		embedder: embedder,
		llm:      svc,
	}
}

// Dir returns the artifact directory for a chat.
func (s *Service) Dir(chatID uuid.UUID) string {
	return filepath.Join(s.root, "embeddings", chatID.String())
}

func (s *Service) path(chatID uuid.UUID) string {
	return filepath.Join(s.Dir(chatID), artifactName)
}

// Exists reports whether a retrieval index artifact exists for the chat.
// Presence of the artifact is what routes completions through retrieval.
func (s *Service) Exists(chatID uuid.UUID) bool {
	_, err := os.Stat(s.path(chatID))
	return err == nil
}

// Build creates a fresh index from the given documents.
func (s *Service) Build(ctx context.Context, chatID uuid.UUID, docs []Document) (*Index, error) {
	idx := &Index{ChatID: chatID}
	for _, doc := range docs {
		if err := s.Insert(ctx, idx, doc); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Insert splits a document into chunks, embeds them, and adds them to the
// index. The caller is responsible for persisting afterwards.
func (s *Service) Insert(ctx context.Context, idx *Index, doc Document) error {
	pieces, err := s.splitter.SplitText(doc.Text)
	if err != nil {
		return fmt.Errorf("splitting document %s: %w", doc.Source, err)
	}

	for i, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %s: %w", i, doc.Source, err)
		}
		idx.Chunks = append(idx.Chunks, Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Text:       piece,
			Embedding:  vec,
		})
	}

	return nil
}

// Persist writes the index artifact to the chat's directory, creating it if
// needed.
func (s *Service) Persist(idx *Index) error {
	if err := os.MkdirAll(s.Dir(idx.ChatID), os.ModePerm); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("serializing index: %w", err)
	}

	if err := os.WriteFile(s.path(idx.ChatID), data, 0o644); err != nil {
		return fmt.Errorf("writing index artifact: %w", err)
	}

	return nil
}

// Load reads the chat's index artifact from disk.
func (s *Service) Load(chatID uuid.UUID) (*Index, error) {
	data, err := os.ReadFile(s.path(chatID))
	if err != nil {
		return nil, fmt.Errorf("reading index artifact: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing index artifact: %w", err)
	}

	return &idx, nil
}

// Query loads the chat's index and answers the query from its top-k most
// similar passages. Returns an empty string when the index holds nothing
// relevant; the caller treats that as "no retrieval answer".
func (s *Service) Query(ctx context.Context, chatID uuid.UUID, query string, topK int) (string, error) {
	idx, err := s.Load(chatID)
	if err != nil {
		return "", err
	}
	return s.QueryIndex(ctx, idx, query, topK)
}

// QueryIndex answers the query against an already loaded index.
func (s *Service) QueryIndex(ctx context.Context, idx *Index, query string, topK int) (string, error) {
	if len(idx.Chunks) == 0 {
		return "", nil
	}

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	type scored struct {
		chunk Chunk
		score float64
	}

	results := make([]scored, 0, len(idx.Chunks))
	for _, chunk := range idx.Chunks {
		results = append(results, scored{chunk: chunk, score: cosineSimilarity(qvec, chunk.Embedding)})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.chunk.Text
	}

	prompt := fmt.Sprintf(
		"Context information is below.\n---------------------\n%s\n---------------------\n"+
			"Given the context information and not prior knowledge, answer the query.\nQuery: %s\nAnswer: ",
		strings.Join(passages, "\n\n"), query)

	return s.llm.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
