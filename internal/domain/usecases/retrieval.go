// retrieval.go holds the history-aware retriever and the answer composer:
// a question against an ingested conversation becomes a standalone search
// query, the top chunks come back from the index, and a grounded answer is
// composed from them.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
	"github.com/veronica-ai/assistant-go/internal/logger"
)

// condenseInstruction rewrites the conversation plus the new question into
// a standalone search query.
const condenseInstruction = "Given the above conversation, generate a search query to look up in order to get information relevant to the conversation."

// composerSystemPrompt constrains the answer to the retrieved context.
// The fallback sentence is a prompt-level contract with the model, not a
// structural guarantee; scenario tests cover it with a scripted service.
const composerSystemPrompt = `Your name is Veronica. You are a helpful assistant designed to ease the work and productivity of users.
You are given context and a user question. Answer the user question from the provided context only. If you don't find the answer in the context then simply say "There is no answer for this question in the provided context."
Context:
%s`

// RAGUseCase answers questions against an ingested conversation.
type RAGUseCase struct {
	embedder      ports.EmbeddingService
	router        ports.CompletionRouter
	conversations ports.ConversationStore
	sessions      ports.SessionRegistry
	topK          int
}

// NewRAGUseCase creates a RAGUseCase with injected dependencies.
func NewRAGUseCase(
	embedder ports.EmbeddingService,
	router ports.CompletionRouter,
	conversations ports.ConversationStore,
	sessions ports.SessionRegistry,
	topK int,
) *RAGUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RAGUseCase{
		embedder:      embedder,
		router:        router,
		conversations: conversations,
		sessions:      sessions,
		topK:          topK,
	}
}

// Answer runs one retrieval-augmented turn. The turn is serialized per
// conversation id: history is read, the answer composed, then both the
// question and the answer are appended, with no other turn interleaving.
// A conversation that never had a document ingested fails with
// entities.ErrPipelineNotFound and is left untouched.
func (uc *RAGUseCase) Answer(ctx context.Context, conversationID, question, model string) (entities.Message, error) {
	if strings.TrimSpace(question) == "" {
		return entities.Message{}, fmt.Errorf("%w: empty question", entities.ErrInvalidInput)
	}

	pipe, ok := uc.sessions.Lookup(conversationID)
	if !ok {
		return entities.Message{}, fmt.Errorf("%w: %s", entities.ErrPipelineNotFound, conversationID)
	}

	svc, err := uc.router.Resolve(model)
	if err != nil {
		return entities.Message{}, err
	}

	release := uc.conversations.Lock(conversationID)
	defer release()

	history, _ := uc.conversations.Get(conversationID)

	searchQuery := uc.condense(ctx, svc, history, question)

	queryEmbedding, err := uc.embedder.Embed(ctx, searchQuery)
	if err != nil {
		return entities.Message{}, fmt.Errorf("embedding search query: %w", err)
	}

	k := pipe.TopK
	if k <= 0 {
		k = uc.topK
	}
	results, err := pipe.Index.Query(ctx, queryEmbedding, k)
	if err != nil {
		return entities.Message{}, fmt.Errorf("searching index: %w", err)
	}

	answer, err := uc.compose(ctx, svc, history, question, results)
	if err != nil {
		return entities.Message{}, err
	}

	uc.conversations.Append(conversationID, entities.RoleUser, question)
	return uc.conversations.Append(conversationID, entities.RoleAssistant, answer), nil
}

// condense turns the history plus the new question into a standalone
// search query. Skipped on empty history, and a condensation failure
// degrades to the raw question instead of failing the turn.
func (uc *RAGUseCase) condense(ctx context.Context, svc ports.CompletionService, history []entities.Message, question string) string {
	if len(history) == 0 {
		return question
	}

	messages := entities.PromptHistory(history)
	messages = append(messages,
		entities.ChatMessage{Role: entities.RoleUser, Content: question},
		entities.ChatMessage{Role: entities.RoleUser, Content: condenseInstruction},
	)

	query, err := svc.Complete(ctx, messages, ports.CompletionOptions{})
	if err != nil {
		logger.Warn("condensing question failed, using raw question: %v", err)
		return question
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return question
	}

	logger.Debug("condensed question to search query: %q", query)
	return query
}

// compose builds the grounded answer from the retrieved chunks.
func (uc *RAGUseCase) compose(ctx context.Context, svc ports.CompletionService, history []entities.Message, question string, results []entities.QueryResult) (string, error) {
	contextParts := make([]string, len(results))
	for i, r := range results {
		contextParts[i] = r.Chunk.Content
	}

	messages := []entities.ChatMessage{
		{Role: entities.RoleSystem, Content: fmt.Sprintf(composerSystemPrompt, strings.Join(contextParts, "\n\n"))},
	}
	messages = append(messages, entities.PromptHistory(history)...)
	messages = append(messages, entities.ChatMessage{Role: entities.RoleUser, Content: question})

	answer, err := svc.Complete(ctx, messages, ports.CompletionOptions{})
	if err != nil {
		return "", fmt.Errorf("composing answer: %w", err)
	}
	return answer, nil
}
