package cmd

import (
	"fmt"
	"time"

	"github.com/sweetpotatoswee/aical/internal/appdir"
	"github.com/sweetpotatoswee/aical/internal/calendar"
	"github.com/sweetpotatoswee/aical/internal/config"
	"github.com/sweetpotatoswee/aical/internal/nlp"
)

// newServices builds the backend clients from the loaded configuration.
// Instruction overrides from AICAL_DIR/prompts/ are applied at startup;
// the web command additionally watches the directory for changes.
func newServices() (*nlp.Client, *calendar.Client, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}

	prompts, err := loadPrompts()
	if err != nil {
		return nil, nil, err
	}

	nlpClient := nlp.NewClient(nlp.Options{
		BaseURL: cfg.NLP.BaseURL,
		APIKey:  cfg.NLP.APIKey,
		Timeout: time.Duration(cfg.NLP.TimeoutSeconds) * time.Second,
		Prompts: prompts,
	})
	calClient := calendar.NewClient(calendar.Options{
		BaseURL: cfg.Calendar.BaseURL,
		APIKey:  cfg.Calendar.APIKey,
	})
	return nlpClient, calClient, nil
}

func loadPrompts() (*config.Prompts, error) {
	dir, err := appdir.PromptsDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get prompts directory: %w", err)
	}
	prompts, err := config.LoadPrompts(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return prompts, nil
}
