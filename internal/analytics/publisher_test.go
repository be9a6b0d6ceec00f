package analytics

import (
	"context"
	"testing"
	"time"
)

func TestNewPromptRecord_Timestamp(t *testing.T) {
	rec := NewPromptRecord("prompt", `{"temperature":0.2}`, "response", 10, 3)

	if rec.Prompt != "prompt" || rec.Response != "response" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.InputTokens != 10 || rec.OutputTokens != 3 {
		t.Fatalf("unexpected token counts: %+v", rec)
	}

	parsed, err := time.Parse("2006/01/02 15:04:05.000000", rec.RecordedAt)
	if err != nil {
		t.Fatalf("timestamp not in sink format: %q (%v)", rec.RecordedAt, err)
	}
	if d := time.Since(parsed); d < 0 || d > time.Minute {
		t.Fatalf("timestamp not current: %q", rec.RecordedAt)
	}
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	if err := r.PublishRecords(context.Background(), []PromptRecord{{}}); err != nil {
		t.Fatalf("nop recorder errored: %v", err)
	}
}
