package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

// Registry maps model-name strings to their configured completion service.
// Routing is fixed at startup: registrations happen during wiring and
// Validate runs before the server accepts traffic, so an unknown model is
// always a caller-input error rather than a misconfiguration found mid-request.
type Registry struct {
	mu           sync.RWMutex
	services     map[string]ports.CompletionService
	defaultModel string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]ports.CompletionService)}
}

// Register routes a model name to a service. The first registration also
// becomes the default unless SetDefault overrides it.
func (r *Registry) Register(model string, svc ports.CompletionService) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services[model] = svc
	if r.defaultModel == "" {
		r.defaultModel = model
	}
}

// SetDefault selects the model used when a request names none.
func (r *Registry) SetDefault(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = model
}

// Resolve returns the service hosting the model, falling back to the
// default service when model is empty.
func (r *Registry) Resolve(model string) (ports.CompletionService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model == "" {
		model = r.defaultModel
	}
	svc, ok := r.services[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownModel, model)
	}
	return svc, nil
}

// Models returns the registered model names, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.services))
	for m := range r.services {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Validate checks the registry is usable: at least one model, and the
// default routes somewhere. Called once at startup.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.services) == 0 {
		return fmt.Errorf("no completion services registered")
	}
	if _, ok := r.services[r.defaultModel]; !ok {
		return fmt.Errorf("default model %q has no registered service", r.defaultModel)
	}
	return nil
}
