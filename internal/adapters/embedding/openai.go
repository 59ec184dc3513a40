package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/logger"
)

// OpenAIAdapter implements ports.EmbeddingService against the OpenAI
// embeddings API. Any OpenAI-compatible host works via baseURL.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIAdapter creates an OpenAI-compatible embedding adapter.
func NewOpenAIAdapter(baseURL, apiKey, model string) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type openaiEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch sends all texts in a single API call.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(openaiEmbedRequest{Model: a.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", entities.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", entities.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling embeddings API: %v", entities.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings API returned status %d", entities.ErrEmbedding, resp.StatusCode)
	}

	var embedResp openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", entities.ErrEmbedding, err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", entities.ErrEmbedding, len(texts), len(embedResp.Data))
	}

	// The API documents order-preserving responses but indexes them anyway.
	embeddings := make([][]float32, len(texts))
	for _, item := range embedResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", entities.ErrEmbedding, item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}

	logger.Debug("embedded batch of %d texts", len(texts))
	return embeddings, nil
}
