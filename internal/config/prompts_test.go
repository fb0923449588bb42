package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParsePromptFile_WithFrontMatter(t *testing.T) {
	data := []byte(`---
name: "Custom drafting"
description: "Stricter time parsing"
---

Draft events and be strict about times.`)

	pf, err := ParsePromptFile("add.md", data, time.Now())
	if err != nil {
		t.Fatalf("ParsePromptFile() failed: %v", err)
	}

	if pf.Name != "Custom drafting" {
		t.Errorf("Name = %q", pf.Name)
	}
	if pf.Description != "Stricter time parsing" {
		t.Errorf("Description = %q", pf.Description)
	}
	if pf.Content != "Draft events and be strict about times." {
		t.Errorf("Content = %q", pf.Content)
	}
	if !pf.IsEnabled() {
		t.Error("prompt should default to enabled")
	}
}

func TestParsePromptFile_NoFrontMatter(t *testing.T) {
	pf, err := ParsePromptFile("classify.md", []byte("Just classify.\n"), time.Now())
	if err != nil {
		t.Fatalf("ParsePromptFile() failed: %v", err)
	}
	if pf.Content != "Just classify." {
		t.Errorf("Content = %q", pf.Content)
	}
	if pf.Name != "classify" {
		t.Errorf("Name = %q, want derived from filename", pf.Name)
	}
}

func TestParsePromptFile_Disabled(t *testing.T) {
	data := []byte("---\nenabled: false\n---\n\nIgnore me.")
	pf, err := ParsePromptFile("delete.md", data, time.Now())
	if err != nil {
		t.Fatalf("ParsePromptFile() failed: %v", err)
	}
	if pf.IsEnabled() {
		t.Error("prompt should be disabled")
	}
}

func TestParsePromptFile_MalformedFrontMatter(t *testing.T) {
	// Opening delimiter without a closing one: whole file is content
	data := []byte("---\nname: unclosed\n\nbody text")
	pf, err := ParsePromptFile("add.md", data, time.Now())
	if err != nil {
		t.Fatalf("ParsePromptFile() failed: %v", err)
	}
	if !strings.Contains(pf.Content, "body text") {
		t.Errorf("Content = %q, want whole file", pf.Content)
	}
}

func TestLoadPrompts_Defaults(t *testing.T) {
	prompts, err := LoadPrompts(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("LoadPrompts() failed: %v", err)
	}
	defaults := DefaultPrompts()
	if prompts.Classify != defaults.Classify || prompts.Add != defaults.Add || prompts.Delete != defaults.Delete {
		t.Error("missing directory should yield built-in templates")
	}
	if len(prompts.Overridden) != 0 {
		t.Errorf("Overridden = %v, want empty", prompts.Overridden)
	}
}

func TestLoadPrompts_Overrides(t *testing.T) {
	dir := t.TempDir()
	writePrompt := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	writePrompt("add.md", "Custom add instructions.")
	writePrompt("delete.md", "---\nenabled: false\n---\n\nDisabled delete override.")

	prompts, err := LoadPrompts(dir)
	if err != nil {
		t.Fatalf("LoadPrompts() failed: %v", err)
	}

	if prompts.Add != "Custom add instructions." {
		t.Errorf("Add = %q, want override", prompts.Add)
	}
	if prompts.Delete != DefaultPrompts().Delete {
		t.Error("disabled override must fall back to the built-in template")
	}
	if prompts.Classify != DefaultPrompts().Classify {
		t.Error("absent override must fall back to the built-in template")
	}
	if len(prompts.Overridden) != 1 || prompts.Overridden[0] != PromptAdd {
		t.Errorf("Overridden = %v, want [add]", prompts.Overridden)
	}
}

func TestPromptsWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()

	reloaded := make(chan *Prompts, 4)
	pw, err := NewPromptsWatcher(dir, func(p *Prompts) {
		reloaded <- p
	}, nil)
	if err != nil {
		t.Fatalf("NewPromptsWatcher() failed: %v", err)
	}
	pw.SetDebounceDelay(10 * time.Millisecond)
	pw.Start()
	defer pw.Close()

	if err := os.WriteFile(filepath.Join(dir, "classify.md"), []byte("New classify rules."), 0644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	select {
	case p := <-reloaded:
		if p.Classify != "New classify rules." {
			t.Errorf("reloaded Classify = %q", p.Classify)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func TestPromptsWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	reloaded := make(chan *Prompts, 4)
	pw, err := NewPromptsWatcher(dir, func(p *Prompts) {
		reloaded <- p
	}, nil)
	if err != nil {
		t.Fatalf("NewPromptsWatcher() failed: %v", err)
	}
	pw.SetDebounceDelay(10 * time.Millisecond)
	pw.Start()
	defer pw.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a template"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case <-reloaded:
		t.Error("non-markdown file should not trigger a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
