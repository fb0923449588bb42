package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DeploySamplePromptsResult contains the result of deploying the sample
// instruction overrides.
type DeploySamplePromptsResult struct {
	// Deployed is the list of files that were written.
	Deployed []string
	// Skipped is the list of files that already existed.
	Skipped []string
}

// DeploySamplePrompts writes the embedded sample overrides to the target
// directory. Existing files are skipped unless force is true, so local
// edits survive upgrades.
func DeploySamplePrompts(targetDir string, force bool) (*DeploySamplePromptsResult, error) {
	result := &DeploySamplePromptsResult{}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create prompts directory %s: %w", targetDir, err)
	}

	entries, err := fs.ReadDir(SamplePromptsFS, SamplePromptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		targetPath := filepath.Join(targetDir, entry.Name())
		if _, err := os.Stat(targetPath); err == nil && !force {
			result.Skipped = append(result.Skipped, entry.Name())
			continue
		}

		data, err := fs.ReadFile(SamplePromptsFS, SamplePromptsDir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(targetPath, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write prompt %s: %w", targetPath, err)
		}
		result.Deployed = append(result.Deployed, entry.Name())
	}

	return result, nil
}
