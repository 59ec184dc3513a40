// Package store holds the in-process conversation and session state.
// Constructed once at startup and injected into handlers; nothing here
// survives a restart. Unbounded growth over process lifetime is accepted.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
)

// ConversationStore is an append-only, in-memory log of messages keyed by
// conversation id. It also hands out a per-id lock so two concurrent turns
// on the same conversation cannot interleave their read-then-append
// sequences; turns on different conversations never contend.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string][]entities.Message

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string][]entities.Message),
		locks:         make(map[string]*sync.Mutex),
	}
}

// Create registers a conversation id, generating a UUID when id is empty.
// Idempotent: creating an existing id returns it unchanged and does not
// reset its history.
func (s *ConversationStore) Create(id string) string {
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		s.conversations[id] = nil
	}
	return id
}

// Append adds a message to a conversation, auto-creating it if absent.
func (s *ConversationStore) Append(id, role, content string) entities.Message {
	msg := entities.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[id] = append(s.conversations[id], msg)
	return msg
}

// Get returns the conversation's messages in append order.
// The returned slice is a copy; callers cannot mutate stored history.
func (s *ConversationStore) Get(id string) ([]entities.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.conversations[id]
	if !ok {
		return nil, false
	}

	out := make([]entities.Message, len(messages))
	copy(out, messages)
	return out, true
}

// Len returns the number of conversations held.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Lock acquires the turn lock for one conversation id and returns its
// release function. Lock entries are never evicted; they are a mutex per
// conversation for the process lifetime, same as the history itself.
func (s *ConversationStore) Lock(id string) func() {
	s.lockMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.lockMu.Unlock()

	m.Lock()
	return m.Unlock
}
