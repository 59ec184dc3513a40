// Package llm provides completion service adapters and the model registry.
// Adapters implement ports.CompletionService; each one speaks a single
// provider's chat API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

// OllamaAdapter implements ports.CompletionService using the Ollama chat API.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAdapter creates a new Ollama completion adapter.
func NewOllamaAdapter(baseURL, model string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// ollamaChatRequest is the Ollama chat API request.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatResponse is the Ollama chat API response.
type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// Complete sends the conversation to Ollama and returns the reply text.
func (a *OllamaAdapter) Complete(ctx context.Context, messages []entities.ChatMessage, opts ports.CompletionOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	reqBody := ollamaChatRequest{
		Model:  model,
		Stream: false,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}
	if opts.Temperature > 0 {
		reqBody.Options = map[string]any{"temperature": opts.Temperature}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", entities.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", entities.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling Ollama: %v", entities.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: Ollama returned status %d", entities.ErrCompletion, resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", entities.ErrCompletion, err)
	}

	return chatResp.Message.Content, nil
}

// ModelName returns the default model this adapter answers with.
func (a *OllamaAdapter) ModelName() string {
	return a.model
}
