package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Instruction template roles. Each role maps to one markdown file in
// AICAL_DIR/prompts/ that overrides the built-in template when present.
const (
	PromptClassify = "classify"
	PromptAdd      = "add"
	PromptDelete   = "delete"
)

// Built-in instruction templates, used when no override file exists.
const (
	defaultClassifyPrompt = `Decide whether the user's request adds calendar events, ` +
		`deletes calendar events, mixes both, or is unrelated to scheduling. ` +
		`Answer with exactly one of: add, delete, complex, garbage.`

	defaultAddPrompt = `Draft the calendar events the user is asking for. ` +
		`Respond with a JSON object containing a "content" narration and an ` +
		`"items" array of proposed events. Use recurrence rules for repeating ` +
		`events and include sample occurrences.`

	defaultDeletePrompt = `Find the calendar events the user wants removed within ` +
		`the visible date range. Respond with a JSON object containing a "content" ` +
		`narration and grouped candidate deletions with their event ids.`
)

// PromptFile is a parsed markdown instruction template with optional
// YAML front-matter. Files live in AICAL_DIR/prompts/ as <role>.md.
type PromptFile struct {
	// Path is the relative path from the prompts directory (e.g., "add.md").
	Path string `json:"-"`

	// Name is a display name. If not specified in front-matter, derived
	// from the filename.
	Name string `yaml:"name" json:"name"`

	// Description is an optional note about what the override changes.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Enabled controls whether the override is active. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty" json:"-"`

	// Content is the markdown body after the front-matter.
	Content string `json:"content"`

	// FileModTime is the file's modification time for cache invalidation.
	FileModTime time.Time `json:"-"`
}

// IsEnabled returns true if the override is enabled.
// A nil Enabled field is treated as true (enabled by default).
func (p *PromptFile) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Prompts holds the effective instruction templates per role.
type Prompts struct {
	Classify string
	Add      string
	Delete   string

	// Overridden names the roles loaded from files rather than built-ins.
	Overridden []string
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Classify: defaultClassifyPrompt,
		Add:      defaultAddPrompt,
		Delete:   defaultDeletePrompt,
	}
}

// LoadPrompts builds the effective template set: built-in defaults
// overlaid with any enabled override files found in dir. A missing
// directory yields the defaults.
func LoadPrompts(dir string) (*Prompts, error) {
	prompts := DefaultPrompts()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return prompts, nil
	}

	for _, role := range []string{PromptClassify, PromptAdd, PromptDelete} {
		pf, err := LoadPromptFile(dir, role+".md")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !pf.IsEnabled() || pf.Content == "" {
			continue
		}
		switch role {
		case PromptClassify:
			prompts.Classify = pf.Content
		case PromptAdd:
			prompts.Add = pf.Content
		case PromptDelete:
			prompts.Delete = pf.Content
		}
		prompts.Overridden = append(prompts.Overridden, role)
	}

	return prompts, nil
}

// frontMatterDelimiter is the YAML front-matter delimiter.
const frontMatterDelimiter = "---"

// ParsePromptFile parses a markdown file with YAML front-matter.
// The file format is:
//
//	---
//	name: "Drafting instructions"
//	description: "Optional note"
//	---
//
//	Template content here...
//
// If no front-matter is present, the entire file is treated as content
// and the name is derived from the filename.
func ParsePromptFile(path string, data []byte, modTime time.Time) (*PromptFile, error) {
	prompt := &PromptFile{
		Path:        path,
		FileModTime: modTime,
	}

	content := string(data)

	if strings.HasPrefix(strings.TrimSpace(content), frontMatterDelimiter) {
		lines := strings.Split(content, "\n")
		var frontMatterEnd int
		foundStart := false

		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == frontMatterDelimiter {
				if !foundStart {
					foundStart = true
					continue
				}
				frontMatterEnd = i
				break
			}
		}

		if frontMatterEnd > 0 {
			frontMatter := strings.Join(lines[1:frontMatterEnd], "\n")
			if err := yaml.Unmarshal([]byte(frontMatter), prompt); err != nil {
				return nil, fmt.Errorf("failed to parse front-matter in %s: %w", path, err)
			}

			if frontMatterEnd+1 < len(lines) {
				prompt.Content = strings.TrimSpace(strings.Join(lines[frontMatterEnd+1:], "\n"))
			}
		} else {
			// Malformed front-matter - treat entire file as content
			prompt.Content = strings.TrimSpace(content)
		}
	} else {
		// No front-matter - entire file is content
		prompt.Content = strings.TrimSpace(content)
	}

	// Derive name from filename if not specified
	if prompt.Name == "" {
		base := filepath.Base(path)
		prompt.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return prompt, nil
}

// LoadPromptFile loads and parses a single prompt file.
func LoadPromptFile(promptsDir, relativePath string) (*PromptFile, error) {
	fullPath := filepath.Join(promptsDir, relativePath)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat prompt file %s: %w", relativePath, err)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", relativePath, err)
	}

	return ParsePromptFile(relativePath, data, info.ModTime())
}
