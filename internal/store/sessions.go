package store

import (
	"sync"

	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

// SessionRegistry maps a conversation id to the retrieval pipeline built
// from its ingested document or URL. Registering again under the same id
// replaces the pipeline (a re-ingest builds a fresh index).
type SessionRegistry struct {
	mu        sync.RWMutex
	pipelines map[string]*ports.Pipeline
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{pipelines: make(map[string]*ports.Pipeline)}
}

// Register associates a pipeline with a conversation id.
func (r *SessionRegistry) Register(id string, p *ports.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[id] = p
}

// Lookup returns the pipeline for a conversation id, if one was ingested.
func (r *SessionRegistry) Lookup(id string) (*ports.Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	return p, ok
}

// Len returns the number of registered pipelines.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pipelines)
}
