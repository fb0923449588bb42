// Package config provides embedded default configuration for Aical.
package config

import (
	"embed"
)

// DefaultConfigYAML contains the embedded default configuration in YAML
// format. `aical config create` writes it as the initial ~/.aicalrc.
//
//go:embed config.default.yaml
var DefaultConfigYAML []byte

// SamplePromptsFS contains the embedded sample instruction overrides.
// They are deployed to AICAL_DIR/prompts/ as documented starting points
// for customizing the classify/add/delete instructions.
//
//go:embed prompts/*.md
var SamplePromptsFS embed.FS

// SamplePromptsDir is the path within the embedded filesystem where the
// sample overrides are stored.
const SamplePromptsDir = "prompts"
