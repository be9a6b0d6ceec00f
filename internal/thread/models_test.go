package thread

import "testing"

func TestPromptListScan(t *testing.T) {
	var p PromptList
	if err := p.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if p == nil || len(p) != 0 {
		t.Fatalf("expected empty non-nil list for NULL column, got %#v", p)
	}

	if err := p.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if len(p) != 2 || p[0] != "a" || p[1] != "b" {
		t.Fatalf("unexpected list: %#v", p)
	}

	if err := p.Scan(`["c"]`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if len(p) != 1 || p[0] != "c" {
		t.Fatalf("unexpected list: %#v", p)
	}
}

func TestPromptListValue(t *testing.T) {
	var nilList PromptList
	v, err := nilList.Value()
	if err != nil {
		t.Fatalf("value nil: %v", err)
	}
	if v != "[]" {
		t.Fatalf("expected empty array encoding, got %v", v)
	}

	v, err = PromptList{"x"}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != `["x"]` {
		t.Fatalf("unexpected encoding: %v", v)
	}
}
