package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/sweetpotatoswee/aical/internal/assistant"
)

// chatPrinter renders controller updates for the terminal. Progress
// labels overwrite each other in place; the preview is printed once
// when the stream ends.
type chatPrinter struct {
	out   io.Writer
	quiet bool

	mu           sync.Mutex
	lastProgress string
}

// onUpdate is the controller's update callback. It only reports
// progress; final previews are printed by the REPL once the turn ends.
func (p *chatPrinter) onUpdate(snap assistant.Snapshot) {
	if p.quiet {
		return
	}
	ms := modeSnap(snap)

	p.mu.Lock()
	defer p.mu.Unlock()

	if ms.Loading && ms.Progress != "" && ms.Progress != p.lastProgress {
		fmt.Fprintf(p.out, "\r\033[K⏳ %s", ms.Progress)
		p.lastProgress = ms.Progress
		return
	}
	if !ms.Loading && p.lastProgress != "" {
		fmt.Fprint(p.out, "\r\033[K")
		p.lastProgress = ""
	}
}

func (p *chatPrinter) printPreview(snap assistant.Snapshot) {
	ms := modeSnap(snap)

	if ms.Error != "" {
		fmt.Fprintf(p.out, "❌ %s\n", ms.Error)
		return
	}

	// Last assistant narration
	for i := len(ms.Messages) - 1; i >= 0; i-- {
		if ms.Messages[i].Role == assistant.RoleAssistant {
			fmt.Fprintf(p.out, "%s\n", strings.TrimSpace(ms.Messages[i].Text))
			break
		}
	}

	switch snap.Mode {
	case assistant.ModeAdd:
		p.printAddPreview(snap)
	case assistant.ModeDelete:
		p.printDeletePreview(snap)
	}
}

func (p *chatPrinter) printAddPreview(snap assistant.Snapshot) {
	if snap.AddPreview == nil || len(snap.AddPreview.Items) == 0 {
		return
	}

	fmt.Fprintln(p.out)
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  #\tSEL\tTITLE\tWHEN")
	for i, item := range snap.AddPreview.Items {
		sel := " "
		if snap.AddSelection[i] {
			sel = "x"
		}
		fmt.Fprintf(w, "  %d\t[%s]\t%s\t%s\n", i+1, sel, item.Title, describeWhen(item))
	}
	w.Flush()
	fmt.Fprintf(p.out, "\n%d of %d selected. /toggle N to change, /apply to create.\n",
		snap.SelectedAddCount, len(snap.AddPreview.Items))
}

func (p *chatPrinter) printDeletePreview(snap assistant.Snapshot) {
	if snap.DeletePreview == nil || len(snap.DeletePreview.Groups) == 0 {
		return
	}

	fmt.Fprintln(p.out)
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tSEL\tTITLE\tEVENTS")
	for _, g := range snap.DeletePreview.Groups {
		sel := " "
		if snap.DeleteSelection[g.GroupKey] {
			sel = "x"
		}
		title := g.Title
		if g.Time != "" {
			title += " (" + g.Time + ")"
		}
		fmt.Fprintf(w, "  %s\t[%s]\t%s\t%d\n", g.GroupKey, sel, title, g.Count)
	}
	w.Flush()
	fmt.Fprintf(p.out, "\n%d event(s) selected for deletion. /toggle KEY to change, /apply to delete.\n",
		snap.SelectedDeleteCount)
}

func (p *chatPrinter) printApplied(result *assistant.ApplyResult) {
	if len(result.Created) > 0 {
		fmt.Fprintf(p.out, "✅ Created %d event(s):\n", len(result.Created))
		for _, ev := range result.Created {
			fmt.Fprintf(p.out, "   - %s (%s)\n", ev.Title, ev.Start)
		}
	}
	if len(result.DeletedIDs) > 0 {
		fmt.Fprintf(p.out, "🗑  Deleted %d event(s)\n", len(result.DeletedIDs))
	}
	if len(result.Created) == 0 && len(result.DeletedIDs) == 0 {
		fmt.Fprintln(p.out, "Nothing applied.")
	}
}

func describeWhen(item assistant.AddPreviewItem) string {
	if item.Recurring() {
		when := item.Recurrence
		if item.StartDate != "" {
			when += " from " + item.StartDate
		}
		return when
	}
	if item.AllDay {
		return item.StartDate + " (all day)"
	}
	when := item.Start
	if item.End != "" {
		when += " to " + item.End
	}
	return when
}
