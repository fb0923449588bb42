// Package transcript provides persistence for Aical conversations. Each
// conversation gets a directory with a metadata.json and an append-only
// events.jsonl log of what the user asked, how it was classified, what
// was previewed, and what was committed.
package transcript

import (
	"time"

	"github.com/sweetpotatoswee/aical/internal/assistant"
)

// EventType represents the type of event in a transcript log.
type EventType string

const (
	EventTypeUserMessage      EventType = "user_message"
	EventTypeAssistantMessage EventType = "assistant_message"
	EventTypeClassification   EventType = "classification"
	EventTypePermission       EventType = "permission"
	EventTypePreview          EventType = "preview"
	EventTypeApply            EventType = "apply"
	EventTypeInterrupt        EventType = "interrupt"
	EventTypeError            EventType = "error"
)

// Event represents a single event in the transcript log.
type Event struct {
	Seq       int64       `json:"seq"` // 1-based, monotonically increasing per transcript
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// UserMessageData contains data for a user message event.
type UserMessageData struct {
	Mode        assistant.Mode `json:"mode"`
	Text        string         `json:"text"`
	Attachments int            `json:"attachments,omitempty"`
}

// AssistantMessageData contains data for an assistant narration event.
type AssistantMessageData struct {
	Mode assistant.Mode `json:"mode"`
	Text string         `json:"text"`
}

// ClassificationData contains data for a classification event.
type ClassificationData struct {
	Text   string                   `json:"text"`
	Result assistant.ClassifyResult `json:"result"`
}

// PermissionData contains data for a permission gate decision.
type PermissionData struct {
	Mode     assistant.Mode `json:"mode"`
	Approved bool           `json:"approved"`
}

// PreviewData contains data for a preview event.
type PreviewData struct {
	Mode  assistant.Mode `json:"mode"`
	Items int            `json:"items"`
}

// ApplyData contains data for an apply event.
type ApplyData struct {
	Mode    assistant.Mode `json:"mode"`
	Created int            `json:"created,omitempty"`
	Deleted int            `json:"deleted,omitempty"`
}

// InterruptData contains data for an interrupt event.
type InterruptData struct {
	RequestID string `json:"request_id"`
}

// ErrorData contains data for an error event.
type ErrorData struct {
	Mode    assistant.Mode `json:"mode"`
	Message string         `json:"message"`
}

// Metadata contains transcript metadata stored separately from the event log.
type Metadata struct {
	TranscriptID      string    `json:"transcript_id"`
	Name              string    `json:"name,omitempty"` // User-friendly transcript name
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	LastUserMessageAt time.Time `json:"last_user_message_at,omitempty"`
	EventCount        int       `json:"event_count"`
	Applies           int       `json:"applies,omitempty"` // Number of committed changes
}
