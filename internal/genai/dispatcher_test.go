package genai

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	text   string
	usage  Usage
	err    error
	params map[string]any
	delay  time.Duration
}

func (f *fakeProvider) Generate(ctx context.Context, contents string, params map[string]any) (string, Usage, error) {
	f.params = params
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", Usage{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return "", Usage{}, f.err
	}
	return f.text, f.usage, nil
}

func TestMergeParameters_DefaultsAndOverrides(t *testing.T) {
	merged := MergeParameters(nil)
	if merged["temperature"] != 0.2 || merged["max_output_tokens"] != 500 {
		t.Fatalf("unexpected defaults: %v", merged)
	}
	if merged["top_p"] != 0.8 || merged["top_k"] != 40 {
		t.Fatalf("unexpected defaults: %v", merged)
	}

	merged = MergeParameters(map[string]any{"temperature": 0.9, "stop": "###"})
	if merged["temperature"] != 0.9 {
		t.Fatalf("override lost: %v", merged["temperature"])
	}
	if merged["stop"] != "###" {
		t.Fatalf("extra key lost: %v", merged["stop"])
	}
	if merged["max_output_tokens"] != 500 {
		t.Fatalf("untouched default lost: %v", merged["max_output_tokens"])
	}
}

func TestDispatcher_PassesMergedParams(t *testing.T) {
	fp := &fakeProvider{text: "fields=orders.count", usage: Usage{InputTokens: 10, OutputTokens: 4}}
	d := NewDispatcher(fp, time.Second)

	text, usage, err := d.Generate(context.Background(), "prompt", map[string]any{"temperature": 0.7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "fields=orders.count" || usage.OutputTokens != 4 {
		t.Fatalf("unexpected result: %q %+v", text, usage)
	}
	if fp.params["temperature"] != 0.7 {
		t.Fatalf("override not forwarded: %v", fp.params["temperature"])
	}
	if fp.params["top_k"] != 40 {
		t.Fatalf("default not forwarded: %v", fp.params["top_k"])
	}
}

func TestDispatcher_TimeoutClassification(t *testing.T) {
	fp := &fakeProvider{delay: time.Second}
	d := NewDispatcher(fp, 10*time.Millisecond)

	_, _, err := d.Generate(context.Background(), "prompt", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestDispatcher_WrapsOpaqueErrors(t *testing.T) {
	fp := &fakeProvider{err: errors.New("connection refused")}
	d := NewDispatcher(fp, time.Second)

	_, _, err := d.Generate(context.Background(), "prompt", nil)
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if ge.Message != "connection refused" {
		t.Fatalf("unexpected message: %q", ge.Message)
	}
}

func TestDispatcher_PreservesBackendErrors(t *testing.T) {
	backend := &GenerationError{Message: "model overloaded"}
	fp := &fakeProvider{err: backend}
	d := NewDispatcher(fp, time.Second)

	_, _, err := d.Generate(context.Background(), "prompt", nil)
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Message != "model overloaded" {
		t.Fatalf("expected backend error preserved, got %v", err)
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	var builtModel string
	reg.Register("Fake", "fallback-model", func(ctx context.Context, model string) (Provider, error) {
		builtModel = model
		return &fakeProvider{text: "ok"}, nil
	})

	p, err := reg.Get(context.Background(), "fake", "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil {
		t.Fatalf("expected provider")
	}
	if builtModel != "m1" {
		t.Fatalf("explicit model not passed through: %q", builtModel)
	}

	if _, err := reg.Get(context.Background(), " FAKE ", ""); err != nil {
		t.Fatalf("normalized lookup: %v", err)
	}
	if builtModel != "fallback-model" {
		t.Fatalf("default model not applied: %q", builtModel)
	}

	if _, err := reg.Get(context.Background(), "missing", "m1"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
