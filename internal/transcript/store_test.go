package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweetpotatoswee/aical/internal/assistant"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetMetadata(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(Metadata{TranscriptID: "tr-1", Name: "Lunch planning"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	meta, err := store.GetMetadata("tr-1")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.TranscriptID != "tr-1" {
		t.Errorf("TranscriptID = %q, want tr-1", meta.TranscriptID)
	}
	if meta.Name != "Lunch planning" {
		t.Errorf("Name = %q, want Lunch planning", meta.Name)
	}
	if meta.CreatedAt.IsZero() || meta.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on create")
	}
	if meta.EventCount != 0 {
		t.Errorf("EventCount = %d, want 0", meta.EventCount)
	}
}

func TestGetMetadataNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetMetadata("missing"); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("err = %v, want ErrTranscriptNotFound", err)
	}
}

func TestAppendEventAssignsSeq(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(Metadata{TranscriptID: "tr-seq"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		err := store.AppendEvent("tr-seq", Event{
			Type: EventTypeAssistantMessage,
			Data: AssistantMessageData{Mode: assistant.ModeAdd, Text: "hi"},
		})
		if err != nil {
			t.Fatalf("AppendEvent %d: %v", i, err)
		}
	}

	events, err := store.ReadEvents("tr-seq")
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	for i, ev := range events {
		if want := int64(i + 1); ev.Seq != want {
			t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, want)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("events[%d].Timestamp is zero", i)
		}
	}

	meta, err := store.GetMetadata("tr-seq")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.EventCount != 3 {
		t.Errorf("EventCount = %d, want 3", meta.EventCount)
	}
}

func TestAppendEventUpdatesCounters(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(Metadata{TranscriptID: "tr-meta"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := time.Now()
	if err := store.AppendEvent("tr-meta", Event{
		Type: EventTypeUserMessage,
		Data: UserMessageData{Mode: assistant.ModeAdd, Text: "lunch tomorrow"},
	}); err != nil {
		t.Fatalf("AppendEvent user_message: %v", err)
	}
	if err := store.AppendEvent("tr-meta", Event{
		Type: EventTypeApply,
		Data: ApplyData{Mode: assistant.ModeAdd, Created: 2},
	}); err != nil {
		t.Fatalf("AppendEvent apply: %v", err)
	}

	meta, err := store.GetMetadata("tr-meta")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.LastUserMessageAt.Before(before) {
		t.Errorf("LastUserMessageAt = %v, want >= %v", meta.LastUserMessageAt, before)
	}
	if meta.Applies != 1 {
		t.Errorf("Applies = %d, want 1", meta.Applies)
	}
}

func TestAppendEventNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendEvent("missing", Event{Type: EventTypeError})
	if !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("err = %v, want ErrTranscriptNotFound", err)
	}
}

func TestReadEventsFrom(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(Metadata{TranscriptID: "tr-from"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := store.AppendEvent("tr-from", Event{Type: EventTypePreview}); err != nil {
			t.Fatalf("AppendEvent %d: %v", i, err)
		}
	}

	events, err := store.ReadEventsFrom("tr-from", 3)
	if err != nil {
		t.Fatalf("ReadEventsFrom: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Seq != 4 || events[1].Seq != 5 {
		t.Errorf("seqs = %d,%d, want 4,5", events[0].Seq, events[1].Seq)
	}
}

func TestListSortedByUpdatedAt(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"tr-a", "tr-b", "tr-c"} {
		if err := store.Create(Metadata{TranscriptID: id}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	// Touch tr-a last so it sorts first.
	time.Sleep(10 * time.Millisecond)
	if err := store.AppendEvent("tr-a", Event{Type: EventTypePreview}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0].TranscriptID != "tr-a" {
		t.Errorf("list[0] = %q, want tr-a", list[0].TranscriptID)
	}
}

func TestListSkipsInvalidMetadata(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Create(Metadata{TranscriptID: "tr-good"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	badDir := filepath.Join(dir, "tr-bad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, metadataFileName), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].TranscriptID != "tr-good" {
		t.Errorf("list = %+v, want just tr-good", list)
	}
}

func TestDeleteAndExists(t *testing.T) {
	store := newTestStore(t)
	if err := store.Create(Metadata{TranscriptID: "tr-del"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !store.Exists("tr-del") {
		t.Fatal("Exists = false before delete")
	}

	if err := store.Delete("tr-del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists("tr-del") {
		t.Error("Exists = true after delete")
	}
	if err := store.Delete("tr-del"); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("second Delete err = %v, want ErrTranscriptNotFound", err)
	}
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := store.Create(Metadata{TranscriptID: "tr-x"}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Create after close err = %v, want ErrStoreClosed", err)
	}
	if _, err := store.List(); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("List after close err = %v, want ErrStoreClosed", err)
	}
}
