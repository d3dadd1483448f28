package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tutor-backend/internal/index"
	"tutor-backend/internal/utils"
)

// ErrIngestion wraps any parse or index failure during document ingestion.
var ErrIngestion = errors.New("ingestion error")

// Indexer is the slice of the index service that ingestion needs.
type Indexer interface {
	Exists(chatID uuid.UUID) bool
	Load(chatID uuid.UUID) (*index.Index, error)
	Build(ctx context.Context, chatID uuid.UUID, docs []index.Document) (*index.Index, error)
	Insert(ctx context.Context, idx *index.Index, doc index.Document) error
	Persist(idx *index.Index) error
}

// Ingestor turns uploaded files into retrieval-index updates.
type Ingestor struct {
	parser  Parser
	indexes Indexer
	locks   *utils.MutexMap
}

func NewIngestor(parser Parser, indexes Indexer) *Ingestor {
	return &Ingestor{parser: parser, indexes: indexes, locks: utils.NewMutexMap()}
}

// EmbedDocument parses the uploaded file and folds its content into the
// chat's retrieval index, creating the index if the chat has none yet. The
// upload is staged in a transient file that is removed on every exit path.
func (ing *Ingestor) EmbedDocument(ctx context.Context, chatID uuid.UUID, file io.Reader, filename string) error {
	if err := ing.embed(ctx, chatID, file, filename); err != nil {
		return fmt.Errorf("%w: %v", ErrIngestion, err)
	}
	return nil
}

func (ing *Ingestor) embed(ctx context.Context, chatID uuid.UUID, file io.Reader, filename string) error {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return fmt.Errorf("staging upload: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		return fmt.Errorf("staging upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("staging upload: %w", err)
	}

	var docs []index.Document
	for chunk := range ing.parser.Parse(filename, tmp) {
		if chunk.Error != nil {
			return fmt.Errorf("parsing %s: %w", filename, chunk.Error)
		}
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		docs = append(docs, index.Document{
			ID:     uuid.NewString(),
			Source: filename,
			Text:   chunk.Text,
		})
	}

	if len(docs) == 0 {
		return fmt.Errorf("no content extracted from %s", filename)
	}

	// The load-modify-persist sequence must be serialized per chat so
	// concurrent uploads cannot lose each other's documents.
	key := chatID.String()
	ing.locks.Lock(key)
	defer ing.locks.Unlock(key)

	var idx *index.Index
	if ing.indexes.Exists(chatID) {
		idx, err = ing.indexes.Load(chatID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := ing.indexes.Insert(ctx, idx, doc); err != nil {
				return err
			}
		}
	} else {
		idx, err = ing.indexes.Build(ctx, chatID, docs)
		if err != nil {
			return err
		}
	}

	return ing.indexes.Persist(idx)
}
