// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only - no
// framework code, no provider SDKs.
package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
	"github.com/veronica-ai/assistant-go/internal/logger"
)

// Chunking defaults, matching common retrieval settings.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
	DefaultTopK         = 4
)

// IngestUseCase turns a source (file or URL) into a registered retrieval
// pipeline: load, chunk, embed, build index, register under a conversation
// id. Ingestion blocks until the pipeline is registered; no partial state
// is ever visible.
type IngestUseCase struct {
	loader        ports.DocumentLoader
	embedder      ports.EmbeddingService
	builder       ports.IndexBuilder
	conversations ports.ConversationStore
	sessions      ports.SessionRegistry
	chunkSize     int
	chunkOverlap  int
	topK          int
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// Overlap must stay strictly below chunk size; out-of-range values fall
// back to a quarter of the chunk size.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	embedder ports.EmbeddingService,
	builder ports.IndexBuilder,
	conversations ports.ConversationStore,
	sessions ports.SessionRegistry,
	chunkSize, chunkOverlap, topK int,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &IngestUseCase{
		loader:        loader,
		embedder:      embedder,
		builder:       builder,
		conversations: conversations,
		sessions:      sessions,
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		topK:          topK,
	}
}

// Ingest loads the source, builds its index, and registers the pipeline
// under conversationID (a fresh id when empty). The returned id is the
// conversation the caller queries from now on. Any embedding failure
// aborts the whole build; nothing is registered.
func (uc *IngestUseCase) Ingest(ctx context.Context, source, conversationID string) (string, error) {
	doc, err := uc.loader.Load(ctx, source)
	if err != nil {
		return "", err
	}

	chunks := uc.splitDocument(doc)

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return "", fmt.Errorf("building index for %s: %w", source, err)
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	index, err := uc.builder.Build(ctx, chunks)
	if err != nil {
		return "", fmt.Errorf("building index for %s: %w", source, err)
	}

	id := uc.conversations.Create(conversationID)
	uc.sessions.Register(id, &ports.Pipeline{
		Index:     index,
		Source:    doc.Source,
		TopK:      uc.topK,
		CreatedAt: time.Now(),
	})

	logger.Info("ingested %s: %d chunks, conversation %s", source, len(chunks), id)
	return id, nil
}

// splitDocument splits content into fixed-size chunks where consecutive
// chunks share exactly chunkOverlap runes. Concatenating the chunks with
// overlaps removed reconstructs the content; nothing is trimmed.
func (uc *IngestUseCase) splitDocument(doc *entities.Document) []entities.Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}

	step := uc.chunkSize - uc.chunkOverlap
	chunks := make([]entities.Chunk, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + uc.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, entities.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Content:    string(runes[start:end]),
			Index:      len(chunks),
			Offset:     start,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}
