// chat.go holds the direct-completion path: plain chat turns and the
// error decoder, neither of which touches the retrieval pipeline.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

const chatSystemPrompt = `Your name is Veronica. You are a helpful assistant designed to ease the work and productivity of users.
Respond to every query in a detailed and accurate manner, and use the conversation so far for context.`

const errorDecoderPrompt = `You are an expert software developer. The user pastes an error message.
Explain what the error means, its most likely cause, and the concrete steps to fix it.`

// ChatUseCase handles conversations with no associated pipeline.
type ChatUseCase struct {
	router        ports.CompletionRouter
	conversations ports.ConversationStore
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
func NewChatUseCase(router ports.CompletionRouter, conversations ports.ConversationStore) *ChatUseCase {
	return &ChatUseCase{
		router:        router,
		conversations: conversations,
	}
}

// Chat runs one direct-completion turn and returns the conversation id
// (created when empty) plus the stored assistant message. Turns are
// serialized per conversation id.
func (uc *ChatUseCase) Chat(ctx context.Context, conversationID, message, model string) (string, entities.Message, error) {
	if strings.TrimSpace(message) == "" {
		return conversationID, entities.Message{}, fmt.Errorf("%w: empty message", entities.ErrInvalidInput)
	}

	svc, err := uc.router.Resolve(model)
	if err != nil {
		return conversationID, entities.Message{}, err
	}

	id := uc.conversations.Create(conversationID)

	release := uc.conversations.Lock(id)
	defer release()

	history, _ := uc.conversations.Get(id)

	messages := []entities.ChatMessage{
		{Role: entities.RoleSystem, Content: chatSystemPrompt},
	}
	messages = append(messages, entities.PromptHistory(history)...)
	messages = append(messages, entities.ChatMessage{Role: entities.RoleUser, Content: message})

	reply, err := svc.Complete(ctx, messages, ports.CompletionOptions{Model: model, Temperature: 0.7})
	if err != nil {
		return id, entities.Message{}, err
	}

	uc.conversations.Append(id, entities.RoleUser, message)
	return id, uc.conversations.Append(id, entities.RoleAssistant, reply), nil
}

// DecodeError explains a pasted error message. Stateless: no conversation
// is created or touched.
func (uc *ChatUseCase) DecodeError(ctx context.Context, errorMessage, language, model string) (string, error) {
	if strings.TrimSpace(errorMessage) == "" {
		return "", fmt.Errorf("%w: empty error message", entities.ErrInvalidInput)
	}

	svc, err := uc.router.Resolve(model)
	if err != nil {
		return "", err
	}

	content := errorMessage
	if language != "" {
		content = fmt.Sprintf("Language: %s\n\n%s", language, errorMessage)
	}

	return svc.Complete(ctx, []entities.ChatMessage{
		{Role: entities.RoleSystem, Content: errorDecoderPrompt},
		{Role: entities.RoleUser, Content: content},
	}, ports.CompletionOptions{Model: model})
}
