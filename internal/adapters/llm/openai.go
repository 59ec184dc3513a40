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

// OpenAIAdapter implements ports.CompletionService against the OpenAI chat
// completions API. Groq and other OpenAI-compatible hosts are reached the
// same way through baseURL.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIAdapter creates an OpenAI-compatible completion adapter.
func NewOpenAIAdapter(baseURL, apiKey, model string) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type openaiChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openaiChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openaiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message openaiChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation and returns the first choice's text.
func (a *OpenAIAdapter) Complete(ctx context.Context, messages []entities.ChatMessage, opts ports.CompletionOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	reqBody := openaiChatRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openaiChatMessage{Role: m.Role, Content: m.Content})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", entities.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", entities.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling completions API: %v", entities.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: completions API returned status %d", entities.ErrCompletion, resp.StatusCode)
	}

	var chatResp openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", entities.ErrCompletion, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", entities.ErrCompletion)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the default model this adapter answers with.
func (a *OpenAIAdapter) ModelName() string {
	return a.model
}
