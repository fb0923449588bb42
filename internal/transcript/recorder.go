package transcript

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/logging"
)

// Recorder records conversation events to a transcript store. It
// implements assistant.TurnRecorder. All recording is best effort:
// failures are logged and never propagated to the conversation.
type Recorder struct {
	store        *Store
	transcriptID string
	mu           sync.Mutex
	started      bool
}

// Verify Recorder satisfies the controller's recorder contract.
var _ assistant.TurnRecorder = (*Recorder)(nil)

// NewRecorder creates a new transcript recorder with a generated id.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{
		store:        store,
		transcriptID: generateTranscriptID(),
	}
}

// NewRecorderWithID creates a new transcript recorder with a specific id.
func NewRecorderWithID(store *Store, id string) *Recorder {
	return &Recorder{
		store:        store,
		transcriptID: id,
	}
}

// generateTranscriptID generates a unique id using timestamp and random bytes.
func generateTranscriptID() string {
	timestamp := time.Now().Format("20060102-150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		// Fallback to just timestamp if random fails
		return timestamp
	}
	return fmt.Sprintf("%s-%s", timestamp, hex.EncodeToString(randomBytes))
}

// TranscriptID returns the transcript id.
func (r *Recorder) TranscriptID() string {
	return r.transcriptID
}

// Start creates the underlying transcript. Must be called before any
// Record method has an effect.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("transcript already started")
	}

	if err := r.store.Create(Metadata{TranscriptID: r.transcriptID}); err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	r.started = true

	logging.Transcript().Debug("transcript recording started", "transcript_id", r.transcriptID)
	return nil
}

// record appends one event, logging failures instead of returning them.
func (r *Recorder) record(eventType EventType, data interface{}) {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}

	err := r.store.AppendEvent(r.transcriptID, Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		logging.Transcript().Warn("failed to record event",
			"transcript_id", r.transcriptID, "event_type", eventType, "error", err)
	}
}

func (r *Recorder) RecordUserMessage(mode assistant.Mode, text string, attachments int) {
	r.record(EventTypeUserMessage, UserMessageData{Mode: mode, Text: text, Attachments: attachments})
}

func (r *Recorder) RecordAssistantMessage(mode assistant.Mode, text string) {
	r.record(EventTypeAssistantMessage, AssistantMessageData{Mode: mode, Text: text})
}

func (r *Recorder) RecordClassification(text string, result assistant.ClassifyResult) {
	r.record(EventTypeClassification, ClassificationData{Text: text, Result: result})
}

func (r *Recorder) RecordPermission(mode assistant.Mode, approved bool) {
	r.record(EventTypePermission, PermissionData{Mode: mode, Approved: approved})
}

func (r *Recorder) RecordPreview(mode assistant.Mode, items int) {
	r.record(EventTypePreview, PreviewData{Mode: mode, Items: items})
}

func (r *Recorder) RecordApply(mode assistant.Mode, created, deleted int) {
	r.record(EventTypeApply, ApplyData{Mode: mode, Created: created, Deleted: deleted})
}

func (r *Recorder) RecordInterrupt(requestID string) {
	r.record(EventTypeInterrupt, InterruptData{RequestID: requestID})
}

func (r *Recorder) RecordError(mode assistant.Mode, message string) {
	r.record(EventTypeError, ErrorData{Mode: mode, Message: message})
}
