package conversion

import (
	"strings"
	"testing"
)

func TestConvertBasicMarkdown(t *testing.T) {
	c := NewConverter()

	html, err := c.Convert("**Scheduling** lunch for *tomorrow*")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(html, "<strong>Scheduling</strong>") {
		t.Errorf("missing bold: %s", html)
	}
	if !strings.Contains(html, "<em>tomorrow</em>") {
		t.Errorf("missing emphasis: %s", html)
	}
}

func TestConvertGFMTable(t *testing.T) {
	c := NewConverter()

	md := "| When | What |\n|------|------|\n| 1pm  | Lunch |\n"
	html, err := c.Convert(md)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("GFM table not rendered: %s", html)
	}
}

func TestSanitizerStripsScript(t *testing.T) {
	c := DefaultConverter()

	html, err := c.Convert(`Hello <script>alert("x")</script> world`)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("script tag survived sanitization: %s", html)
	}
	if !strings.Contains(html, "Hello") || !strings.Contains(html, "world") {
		t.Errorf("surrounding text lost: %s", html)
	}
}

func TestSanitizerKeepsHighlightClasses(t *testing.T) {
	c := DefaultConverter()

	md := "```go\nfmt.Println(\"hi\")\n```"
	html, err := c.Convert(md)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(html, "<pre") {
		t.Errorf("code block not rendered: %s", html)
	}
}

func TestConvertToSafeHTML(t *testing.T) {
	c := DefaultConverter()

	out := c.ConvertToSafeHTML("plain narration")
	if !strings.Contains(out, "plain narration") {
		t.Errorf("output = %s", out)
	}
}

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML(`<a href="x">&'</a>`)
	want := "&lt;a href=&quot;x&quot;&gt;&amp;&#39;&lt;/a&gt;"
	if got != want {
		t.Errorf("EscapeHTML = %q, want %q", got, want)
	}
}

func TestHasUnmatchedInlineFormatting(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"plain text", false},
		{"**bold**", false},
		{"**bold", true},
		{"has `code` inline", false},
		{"open `code", true},
		{"``double`` ticks", false},
		{"```\nfenced\n```", false},
	}
	for _, tt := range tests {
		if got := HasUnmatchedInlineFormatting(tt.content); got != tt.want {
			t.Errorf("HasUnmatchedInlineFormatting(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestMermaidBlockSurvivesSanitization(t *testing.T) {
	converter := DefaultConverter()

	result, err := converter.Convert("```mermaid\ngraph TD\n    A --> B\n```")
	if err != nil {
		t.Fatalf("Convert() = %v", err)
	}
	if !strings.Contains(result, `class="mermaid"`) {
		t.Errorf("mermaid class stripped:\n%s", result)
	}
	if strings.Contains(result, ">mermaid<") {
		t.Errorf("language identifier leaked as text:\n%s", result)
	}
}
