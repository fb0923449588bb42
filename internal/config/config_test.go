package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `
nlp:
  base_url: "https://nlp.example.com/v1"
  model: "drafter-large"
  effort: "high"
calendar:
  base_url: "https://cal.example.com/api"
web:
  host: "0.0.0.0"
  port: 9090
conversation:
  max_messages: 30
  char_budget: 12000
logging:
  level: "debug"
  components: ["assistant", "web"]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.NLP.BaseURL != "https://nlp.example.com/v1" {
		t.Errorf("NLP.BaseURL = %q", cfg.NLP.BaseURL)
	}
	if cfg.NLP.Model != "drafter-large" || cfg.NLP.Effort != "high" {
		t.Errorf("NLP = %+v", cfg.NLP)
	}
	if cfg.Calendar.BaseURL != "https://cal.example.com/api" {
		t.Errorf("Calendar.BaseURL = %q", cfg.Calendar.BaseURL)
	}
	if cfg.Web.Host != "0.0.0.0" || cfg.Web.Port != 9090 {
		t.Errorf("Web = %+v", cfg.Web)
	}
	if cfg.Conversation.MaxMessages != 30 || cfg.Conversation.CharBudget != 12000 {
		t.Errorf("Conversation = %+v", cfg.Conversation)
	}
	if cfg.Logging.Level != "debug" || len(cfg.Logging.Components) != 2 {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
nlp:
  base_url: "http://localhost:9000"
calendar:
  base_url: "http://localhost:9001"
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.Web.Host != DefaultWebHost {
		t.Errorf("Web.Host = %q, want default %q", cfg.Web.Host, DefaultWebHost)
	}
	if cfg.Web.Port != DefaultWebPort {
		t.Errorf("Web.Port = %d, want default %d", cfg.Web.Port, DefaultWebPort)
	}
	if cfg.NLP.Effort != DefaultNLPEffort {
		t.Errorf("NLP.Effort = %q, want default %q", cfg.NLP.Effort, DefaultNLPEffort)
	}
	if cfg.NLP.TimeoutSeconds != DefaultNLPTimeout {
		t.Errorf("NLP.TimeoutSeconds = %d, want default %d", cfg.NLP.TimeoutSeconds, DefaultNLPTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestParse_MissingBackends(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing nlp",
			content: "calendar:\n  base_url: \"http://x\"\n",
			wantErr: "nlp.base_url",
		},
		{
			name:    "missing calendar",
			content: "nlp:\n  base_url: \"http://x\"\n",
			wantErr: "calendar.base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("nlp: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.NLP.Model != "drafter-large" {
		t.Errorf("NLP.Model = %q", cfg.NLP.Model)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	original := os.Getenv("AICALRC")
	defer os.Setenv("AICALRC", original)

	os.Setenv("AICALRC", "/custom/path/.aicalrc")
	if got := DefaultConfigPath(); got != "/custom/path/.aicalrc" {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
}
