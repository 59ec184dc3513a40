package entities

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors. Adapters wrap their
// transport-level failures with one of these sentinels so callers can
// classify them with errors.Is.
var (
	// ErrFetch indicates a source URL was unreachable or returned a
	// non-text content type. Ingestion input error.
	ErrFetch = errors.New("fetch failed")

	// ErrParse indicates a file could not be decoded as text.
	ErrParse = errors.New("parse failed")

	// ErrEmbedding indicates the embedding service failed. An index build
	// that hits this is aborted whole; no partial index is retained.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCompletion indicates the completion service failed. The request
	// layer converts this into a degraded user-visible message instead of
	// surfacing a raw fault.
	ErrCompletion = errors.New("completion failed")

	// ErrInvalidInput indicates malformed or invalid caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConversationNotFound indicates the conversation id is unknown.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrPipelineNotFound indicates a retrieval query against a conversation
	// that never had a document or URL ingested. Caller-input error, not a
	// transient service failure.
	ErrPipelineNotFound = errors.New("no document ingested for conversation")

	// ErrUnknownModel indicates a model name with no configured provider.
	ErrUnknownModel = errors.New("unknown model")
)
