package cmd

import (
	"strings"
	"testing"

	"github.com/sweetpotatoswee/aical/internal/assistant"
)

func TestCompleteInput(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		cursor        int
		wantNoMatches bool
	}{
		{
			name:          "empty input returns no completions",
			line:          "",
			cursor:        0,
			wantNoMatches: true,
		},
		{
			name:          "non-slash input returns no completions",
			line:          "lunch tomorrow",
			cursor:        14,
			wantNoMatches: true,
		},
		{
			name:   "slash only shows all commands",
			line:   "/",
			cursor: 1,
		},
		{
			name:   "partial prefix matches",
			line:   "/ap",
			cursor: 3,
		},
		{
			name:          "unknown command prefix returns no matches",
			line:          "/xyz",
			cursor:        4,
			wantNoMatches: true,
		},
		{
			name:   "cursor in middle of line",
			line:   "/mode add",
			cursor: 3, // cursor at "/mo"
		},
		{
			name:   "cursor beyond line length is handled",
			line:   "/to",
			cursor: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completions := completeInput(tt.line, tt.cursor)
			if tt.wantNoMatches {
				if completions.PREFIX != "" {
					t.Errorf("expected no completions, got PREFIX=%q", completions.PREFIX)
				}
			}
		})
	}
}

func TestSlashCommandsDefinition(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range slashCommands {
		if !strings.HasPrefix(cmd.name, "/") {
			t.Errorf("command %q does not start with /", cmd.name)
		}
		if cmd.description == "" {
			t.Errorf("command %q has no description", cmd.name)
		}
		if seen[cmd.name] {
			t.Errorf("duplicate command %q", cmd.name)
		}
		seen[cmd.name] = true
	}

	for _, want := range []string{"/mode", "/toggle", "/apply", "/reset", "/quit", "/help"} {
		if !seen[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

func TestDescribeWhen(t *testing.T) {
	tests := []struct {
		name string
		item assistant.AddPreviewItem
		want string
	}{
		{
			name: "timed event",
			item: assistant.AddPreviewItem{Start: "2025-01-02T13:00", End: "2025-01-02T14:00"},
			want: "2025-01-02T13:00 to 2025-01-02T14:00",
		},
		{
			name: "all-day event",
			item: assistant.AddPreviewItem{AllDay: true, StartDate: "2025-01-02"},
			want: "2025-01-02 (all day)",
		},
		{
			name: "recurring event",
			item: assistant.AddPreviewItem{Recurrence: "FREQ=WEEKLY;BYDAY=TU", StartDate: "2025-01-07"},
			want: "FREQ=WEEKLY;BYDAY=TU from 2025-01-07",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeWhen(tt.item); got != tt.want {
				t.Errorf("describeWhen() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinterAddPreview(t *testing.T) {
	var buf strings.Builder
	p := &chatPrinter{out: &buf}

	p.printPreview(assistant.Snapshot{
		Mode: assistant.ModeAdd,
		Add: assistant.ModeSnapshot{
			Messages: []assistant.Message{
				{Role: assistant.RoleUser, Text: "lunch tomorrow"},
				{Role: assistant.RoleAssistant, Text: "Scheduling lunch"},
			},
		},
		AddPreview: &assistant.AddPreview{
			Items: []assistant.AddPreviewItem{
				{Title: "Lunch", Start: "2025-01-02T13:00"},
				{Title: "Coffee", Start: "2025-01-03T09:00"},
			},
		},
		AddSelection:     map[int]bool{0: true},
		SelectedAddCount: 1,
	})

	out := buf.String()
	for _, want := range []string{"Scheduling lunch", "Lunch", "Coffee", "[x]", "[ ]", "1 of 2 selected"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinterDeletePreview(t *testing.T) {
	var buf strings.Builder
	p := &chatPrinter{out: &buf}

	p.printPreview(assistant.Snapshot{
		Mode: assistant.ModeDelete,
		DeletePreview: &assistant.DeletePreview{
			Groups: []assistant.DeletePreviewGroup{
				{GroupKey: "standup", Title: "Daily standup", Time: "09:00", Count: 12},
			},
		},
		DeleteSelection:     map[string]bool{"standup": true},
		SelectedDeleteCount: 12,
	})

	out := buf.String()
	for _, want := range []string{"standup", "Daily standup", "09:00", "12 event(s) selected"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinterError(t *testing.T) {
	var buf strings.Builder
	p := &chatPrinter{out: &buf}

	p.printPreview(assistant.Snapshot{
		Mode: assistant.ModeAdd,
		Add:  assistant.ModeSnapshot{Error: "backend unavailable"},
	})

	if !strings.Contains(buf.String(), "backend unavailable") {
		t.Errorf("output missing error: %s", buf.String())
	}
}

func TestPrinterApplied(t *testing.T) {
	var buf strings.Builder
	p := &chatPrinter{out: &buf}

	p.printApplied(&assistant.ApplyResult{
		Created: []assistant.CreatedEvent{{ID: 1, Title: "Lunch", Start: "2025-01-02T13:00"}},
	})
	if !strings.Contains(buf.String(), "Created 1 event(s)") {
		t.Errorf("output = %s", buf.String())
	}

	buf.Reset()
	p.printApplied(&assistant.ApplyResult{DeletedIDs: []string{"a", "b"}})
	if !strings.Contains(buf.String(), "Deleted 2 event(s)") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long instruction string", 10); got != "a very ..." {
		t.Errorf("truncate(long) = %q", got)
	}
}
