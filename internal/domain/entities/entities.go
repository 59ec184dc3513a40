// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Message roles. The store does not enforce alternation; callers append in turn order.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document represents ingested source material (uploaded file, PDF text, or fetched URL).
type Document struct {
	ID        string
	Name      string
	Source    string // file path or URL the content came from
	Content   string
	CreatedAt time.Time
}

// Chunk is a contiguous span of document text, the unit of retrieval.
// Immutable once produced. Consecutive chunks overlap so a hard cut
// never severs context.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Content    string
	Index      int       // position in document order
	Offset     int       // rune offset into the source text
	Embedding  []float32 // populated during index build
}

// QueryResult is a retrieved chunk with its similarity score.
type QueryResult struct {
	Chunk Chunk
	Score float64
}

// Message is one stored conversation turn. Immutable once created.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
}

// ChatMessage is a role-tagged prompt turn sent to a completion service.
// Unlike Message it carries no identity; it only shapes the model call.
type ChatMessage struct {
	Role    string
	Content string
}

// PromptHistory converts stored messages into completion-service turns.
func PromptHistory(messages []Message) []ChatMessage {
	out := make([]ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
