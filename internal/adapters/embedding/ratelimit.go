package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

// RateLimited wraps an embedding service with a token-bucket limiter so
// index builds cannot hammer the provider. Conservative defaults stay well
// under typical provider quotas.
type RateLimited struct {
	inner   ports.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimited wraps svc, allowing requestsPerSecond sustained with the
// given burst. Non-positive values fall back to 5 rps / burst 10.
func NewRateLimited(svc ports.EmbeddingService, requestsPerSecond float64, burst int) *RateLimited {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5.0
	}
	if burst <= 0 {
		burst = 10
	}
	return &RateLimited{
		inner:   svc,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Embed waits for a token, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

// EmbedBatch waits for one token, then delegates. A token admits the
// whole batch; per-request pacing inside a batch is the adapter's concern.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.EmbedBatch(ctx, texts)
}
