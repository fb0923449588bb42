package assistant

import (
	"encoding/json"
	"testing"
)

func TestAssemblerIncrementalContent(t *testing.T) {
	a := NewAssembler()

	a.AppendChunk(`{"content": "Hel`)
	content, changed := a.Content()
	if !changed || content != "Hel" {
		t.Errorf("after first chunk: content=%q changed=%v, want %q true", content, changed, "Hel")
	}

	a.AppendChunk(`lo wor`)
	content, changed = a.Content()
	if !changed || content != "Hello wor" {
		t.Errorf("after second chunk: content=%q changed=%v, want %q true", content, changed, "Hello wor")
	}

	a.AppendChunk(`ld"}`)
	content, changed = a.Content()
	if !changed || content != "Hello world" {
		t.Errorf("after final chunk: content=%q changed=%v, want %q true", content, changed, "Hello world")
	}

	// Unchanged value must not report changed again.
	if _, changed := a.Content(); changed {
		t.Error("repeated extraction reported changed for identical value")
	}
}

func TestAssemblerContentBeforeKey(t *testing.T) {
	a := NewAssembler()
	a.AppendChunk(`{"con`)
	if content, changed := a.Content(); changed || content != "" {
		t.Errorf("content=%q changed=%v before key complete, want empty false", content, changed)
	}
	a.AppendChunk(`tent":`)
	if _, changed := a.Content(); changed {
		t.Error("reported change before value opening quote")
	}
}

func TestAssemblerEscapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"newline", `{"content":"a\nb"}`, "a\nb"},
		{"tab and return", `{"content":"a\tb\rc"}`, "a\tb\rc"},
		{"escaped quote", `{"content":"say \"hi\""}`, `say "hi"`},
		{"backslash", `{"content":"a\\b"}`, `a\b`},
		{"dangling escape", `{"content":"a\`, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler()
			a.AppendChunk(tt.raw)
			content, _ := a.Content()
			if content != tt.want {
				t.Errorf("content = %q, want %q", content, tt.want)
			}
		})
	}
}

func TestAssemblerEscapedQuoteDoesNotTerminate(t *testing.T) {
	a := NewAssembler()
	a.AppendChunk(`{"content":"one \" two`)
	content, changed := a.Content()
	if !changed || content != `one " two` {
		t.Errorf("content = %q changed=%v, want %q true", content, changed, `one " two`)
	}
}

func TestAssemblerFullReplacement(t *testing.T) {
	a := NewAssembler()
	a.AppendChunk(`{"content":"partial`)

	full := json.RawMessage(`{"content":"done","items":[{"title":"Lunch","start":"2025-01-02T13:00","end":"2025-01-02T14:00"}]}`)
	a.ReplaceFull(full)

	content, changed := a.Content()
	if !changed || content != "done" {
		t.Errorf("content = %q changed=%v, want %q true", content, changed, "done")
	}

	final := a.Final()
	if final.Content != "done" || len(final.Items) != 1 || final.Items[0].Title != "Lunch" {
		t.Errorf("unexpected final preview: %+v", final)
	}
}

func TestAssemblerFinalDegradesOnMalformed(t *testing.T) {
	a := NewAssembler()
	a.AppendChunk(`{"content":"shown","items":[{"title":`)

	final := a.Final()
	if final == nil {
		t.Fatal("Final returned nil")
	}
	if final.Content != "" || len(final.Items) != 0 {
		t.Errorf("malformed buffer should degrade to empty preview, got %+v", final)
	}
}

func TestAssemblerReset(t *testing.T) {
	a := NewAssembler()
	a.AppendChunk(`{"content":"old"}`)
	if content, _ := a.Content(); content != "old" {
		t.Fatalf("setup failed, content=%q", content)
	}

	a.Reset()
	if a.Raw() != "" {
		t.Errorf("Raw() = %q after reset, want empty", a.Raw())
	}

	a.AppendChunk(`{"content":"new"}`)
	content, changed := a.Content()
	if !changed || content != "new" {
		t.Errorf("after reset: content=%q changed=%v, want %q true", content, changed, "new")
	}
}
