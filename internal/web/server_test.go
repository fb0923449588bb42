package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/transcript"
)

// fakeNLP is a scriptable assistant.NLPService for server tests.
type fakeNLP struct {
	mu           sync.Mutex
	classifyFn   func(text string) (assistant.ClassifyResult, error)
	previewAddFn func(req assistant.PreviewAddRequest, onEvent assistant.StreamHandler) error
}

func (f *fakeNLP) Classify(ctx context.Context, text string, hasAttachments bool, requestID string) (assistant.ClassifyResult, error) {
	f.mu.Lock()
	fn := f.classifyFn
	f.mu.Unlock()
	if fn != nil {
		return fn(text)
	}
	return assistant.ClassifyAdd, nil
}

func (f *fakeNLP) PreviewAdd(ctx context.Context, req assistant.PreviewAddRequest, onEvent assistant.StreamHandler) error {
	f.mu.Lock()
	fn := f.previewAddFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req, onEvent)
	}
	return nil
}

func (f *fakeNLP) PreviewDelete(ctx context.Context, req assistant.PreviewDeleteRequest) (*assistant.DeletePreview, error) {
	return &assistant.DeletePreview{}, nil
}

func (f *fakeNLP) Interrupt(ctx context.Context, requestID string) error { return nil }
func (f *fakeNLP) ResetContext(ctx context.Context) error               { return nil }

// fakeCalendar is a scriptable assistant.CalendarService for server tests.
type fakeCalendar struct{}

func (f *fakeCalendar) CreateEvents(ctx context.Context, items []assistant.AddPreviewItem) ([]assistant.CreatedEvent, error) {
	created := make([]assistant.CreatedEvent, len(items))
	for i, item := range items {
		created[i] = assistant.CreatedEvent{ID: int64(i + 1), Title: item.Title, Start: item.Start}
	}
	return created, nil
}

func (f *fakeCalendar) DeleteEvents(ctx context.Context, ids []int64) error        { return nil }
func (f *fakeCalendar) DeleteExternalEvent(ctx context.Context, id string) error   { return nil }

func newTestServer(t *testing.T, nlp *fakeNLP) *Server {
	t.Helper()

	staticDir := t.TempDir()
	index := filepath.Join(staticDir, "index.html")
	if err := os.WriteFile(index, []byte("<!DOCTYPE html><title>Aical</title>"), 0644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	if nlp == nil {
		nlp = &fakeNLP{}
	}
	s, err := NewServer(Config{
		NLP:            nlp,
		Calendar:       &fakeCalendar{},
		TranscriptsDir: t.TempDir(),
		StaticDir:      staticDir,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Shutdown() })
	return s
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthCheckMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := resp.Header.Get("Content-Security-Policy"); got == "" {
		t.Error("missing Content-Security-Policy")
	}
}

func TestStaticIndex(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("index status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/no-such-file.html")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", resp.StatusCode)
	}
}

func TestTranscriptsAPI(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// Empty list at first
	resp, err := http.Get(ts.URL + "/api/transcripts")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var list struct {
		Transcripts []json.RawMessage `json:"transcripts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(list.Transcripts) != 0 {
		t.Errorf("transcripts = %d, want 0", len(list.Transcripts))
	}

	// Unknown transcript
	resp, err = http.Get(ts.URL + "/api/transcripts/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing transcript status = %d, want 404", resp.StatusCode)
	}

	// Seed a transcript and fetch its detail
	store := s.Transcripts()
	if store == nil {
		t.Fatal("transcript store not initialized")
	}
	if err := store.Create(transcript.Metadata{TranscriptID: "tr-1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AppendEvent("tr-1", transcript.Event{
		Type: transcript.EventTypeUserMessage,
		Data: transcript.UserMessageData{Mode: assistant.ModeAdd, Text: "lunch tomorrow"},
	}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	resp, err = http.Get(ts.URL + "/api/transcripts/tr-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var detail struct {
		Metadata transcript.Metadata `json:"metadata"`
		Events   []transcript.Event  `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	resp.Body.Close()
	if detail.Metadata.TranscriptID != "tr-1" {
		t.Errorf("transcript_id = %q", detail.Metadata.TranscriptID)
	}
	if len(detail.Events) != 1 || detail.Events[0].Type != transcript.EventTypeUserMessage {
		t.Errorf("events = %+v", detail.Events)
	}

	// Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/transcripts/tr-1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	// Path traversal rejected
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/transcripts/"+"%2E%2E", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("traversal path should not succeed")
	}
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"model", "effort", "max_messages", "char_budget"} {
		if _, ok := body[key]; !ok {
			t.Errorf("config response missing %q: %v", key, body)
		}
	}
	for key := range body {
		if strings.Contains(key, "url") || strings.Contains(key, "key") {
			t.Errorf("config response leaks %q", key)
		}
	}
}
