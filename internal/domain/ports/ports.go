// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, not concrete implementations;
// adapters implement them. Dependency inversion keeps the provider SDKs,
// the vector index, and the HTTP layer out of the domain.
package ports

import (
	"context"
	"time"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
// The vector dimension is fixed by the configured model and constant
// for a given index.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. A single failure
	// fails the whole batch; callers never see partial results.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionOptions configures a completion call.
type CompletionOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// CompletionService produces a chat completion from an ordered sequence of
// role-tagged messages.
type CompletionService interface {
	Complete(ctx context.Context, messages []entities.ChatMessage, opts CompletionOptions) (string, error)

	// ModelName returns the default model this service answers with.
	ModelName() string
}

// CompletionRouter resolves a model name to the completion service that
// hosts it. Routing is validated at configuration time, not per request.
type CompletionRouter interface {
	// Resolve returns the service for the model, or the default service
	// when model is empty. Fails with entities.ErrUnknownModel otherwise.
	Resolve(model string) (CompletionService, error)
}

// VectorIndex is a similarity-searchable collection of embedded chunks.
// Immutable after build; a re-ingest creates a new index. Safe for
// concurrent queries.
type VectorIndex interface {
	// Query returns the k most similar chunks sorted by descending score,
	// ties broken by original chunk order.
	Query(ctx context.Context, embedding []float32, k int) ([]entities.QueryResult, error)

	// Len returns the number of indexed chunks.
	Len() int
}

// IndexBuilder constructs a VectorIndex from embedded chunks in one shot.
// No incremental insertion contract exists.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []entities.Chunk) (VectorIndex, error)
}

// DocumentLoader reads source material into a Document.
type DocumentLoader interface {
	// Load reads a document from a URL or local file path.
	Load(ctx context.Context, source string) (*entities.Document, error)
}

// Pipeline pairs an index with its answer-composition configuration,
// one per ingested document or URL.
type Pipeline struct {
	Index     VectorIndex
	Source    string
	TopK      int
	CreatedAt time.Time
}

// ConversationStore is an ordered, append-only log of role-tagged messages
// per conversation id, held in process memory.
type ConversationStore interface {
	// Create registers a conversation id, generating one when id is empty.
	// Idempotent: an existing id is returned unchanged with history intact.
	Create(id string) string

	// Append adds a message, auto-creating the conversation if absent.
	Append(id, role, content string) entities.Message

	// Get returns the messages in append order, or false if the id is unknown.
	Get(id string) ([]entities.Message, bool)

	// Lock serializes turns on one conversation id. The returned release
	// function must be called when the turn's read-call-append sequence is done.
	Lock(id string) (release func())
}

// SessionRegistry maps a conversation id to its retrieval pipeline.
// A chat-only conversation has no entry and routes through the
// direct-completion path.
type SessionRegistry interface {
	Register(id string, p *Pipeline)
	Lookup(id string) (*Pipeline, bool)
}

// FileWatcher monitors a directory for dropped documents.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events until ctx ends.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
