package genai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a backend for a concrete model name.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

type registration struct {
	factory      ProviderFactory
	defaultModel string
}

// Registry maps provider names to factories. Names are case-insensitive, and
// each registration carries the model used when the caller does not pick one.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

func (r *Registry) Register(name, defaultModel string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeName(name)] = registration{factory: f, defaultModel: defaultModel}
}

// Get builds the named provider, falling back to its registered default
// model when model is empty.
func (r *Registry) Get(ctx context.Context, name, model string) (Provider, error) {
	r.mu.RLock()
	reg, ok := r.entries[normalizeName(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown generation provider %q (registered: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	if model == "" {
		model = reg.defaultModel
	}
	return reg.factory(ctx, model)
}

// Names lists the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
