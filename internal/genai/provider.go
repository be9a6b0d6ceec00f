package genai

import (
	"context"
	"fmt"
)

// Usage carries the token counters a backend reports for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider is a text-generation backend. Implementations receive the final
// merged parameter set and must honor ctx cancellation.
type Provider interface {
	Generate(ctx context.Context, contents string, params map[string]any) (string, Usage, error)
}

// DefaultParameters is the fixed base parameter set. Caller overrides win,
// keyed by name.
func DefaultParameters() map[string]any {
	return map[string]any{
		"temperature":       0.2,
		"max_output_tokens": 500,
		"top_p":             0.8,
		"top_k":             40,
	}
}

// MergeParameters overlays caller parameters onto the defaults.
func MergeParameters(overrides map[string]any) map[string]any {
	merged := DefaultParameters()
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func intParam(params map[string]any, key string) (int, bool) {
	f, ok := floatParam(params, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// GenerationError is any backend failure that is not a timeout.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Message)
}
