// Package assistant implements the conversation controller that mediates
// between the user interface and the NLP backend when editing a calendar
// with natural language. It owns per-mode conversation state, streams and
// incrementally parses the backend's partial output, routes turns between
// modes based on classification, gates on permission confirmations, and
// commits approved changes through the calendar service.
package assistant

import "encoding/json"

// Mode identifies one of the two independent editing tracks.
type Mode string

const (
	// ModeAdd is the track for proposing new calendar events.
	ModeAdd Mode = "add"
	// ModeDelete is the track for proposing event deletions.
	ModeDelete Mode = "delete"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAdd || m == ModeDelete
}

// Role identifies a conversation message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachment is an image attached to a draft message, carried as a data URL.
type Attachment struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DataURL string `json:"data_url"`
}

// Message is a single entry in a mode's conversation history.
// IncludeInPrompt marks whether the message participates in prompt
// serialization; rejected or interrupted turns flip it to false so the
// failed attempt stays visible in the transcript without polluting
// future prompts.
type Message struct {
	Role            Role         `json:"role"`
	Text            string       `json:"text"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	IncludeInPrompt bool         `json:"include_in_prompt"`
}

// Occurrence is one concrete occurrence of a recurring draft event.
type Occurrence struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// AddPreviewItem is a single proposed event. A one-off draft carries
// Start/End; a recurring draft carries StartDate, a recurrence rule, and
// sample occurrences instead.
type AddPreviewItem struct {
	Title       string       `json:"title"`
	Start       string       `json:"start,omitempty"`
	End         string       `json:"end,omitempty"`
	Location    string       `json:"location,omitempty"`
	Description string       `json:"description,omitempty"`
	AllDay      bool         `json:"all_day,omitempty"`
	StartDate   string       `json:"start_date,omitempty"`
	Recurrence  string       `json:"recurrence,omitempty"`
	Samples     []Occurrence `json:"samples,omitempty"`
}

// Recurring reports whether the item is a recurring draft.
func (i AddPreviewItem) Recurring() bool {
	return i.Recurrence != ""
}

// AddPreview is the structured response of an add-preview turn: the
// assistant's narration plus the proposed items.
type AddPreview struct {
	Content string           `json:"content"`
	Items   []AddPreviewItem `json:"items"`
}

// DeletePreviewGroup is a cluster of candidate events to delete,
// identified by a stable key. IDs mixes numeric local ids and string
// external ids; SplitIDs separates them at apply time.
type DeletePreviewGroup struct {
	GroupKey string   `json:"group_key"`
	Title    string   `json:"title"`
	Time     string   `json:"time"`
	IDs      []string `json:"ids"`
	Count    int      `json:"count"`
	Samples  []string `json:"samples,omitempty"`
}

// DeletePreview is the structured response of a delete-preview turn.
type DeletePreview struct {
	Content            string               `json:"content,omitempty"`
	Groups             []DeletePreviewGroup `json:"groups,omitempty"`
	PermissionRequired bool                 `json:"permission_required,omitempty"`
}

// CreatedEvent describes an event created by the calendar backend.
type CreatedEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ClassifyResult is the verdict of the classification call.
type ClassifyResult string

const (
	// ClassifyAdd commits the turn to the add track.
	ClassifyAdd ClassifyResult = "add"
	// ClassifyDelete commits the turn to the delete track.
	ClassifyDelete ClassifyResult = "delete"
	// ClassifyComplex means the text mixes add and delete intents.
	ClassifyComplex ClassifyResult = "complex"
	// ClassifyGarbage means the text is unrelated to scheduling.
	ClassifyGarbage ClassifyResult = "garbage"
)

// StreamEventType tags events delivered by the add-preview stream.
type StreamEventType string

const (
	StreamEventStatus             StreamEventType = "status"
	StreamEventPermissionRequired StreamEventType = "permission_required"
	StreamEventResetBuffer        StreamEventType = "reset_buffer"
	StreamEventChunk              StreamEventType = "chunk"
	StreamEventFull               StreamEventType = "full"
	StreamEventError              StreamEventType = "error"
)

// StreamEvent is one tagged event from the add-preview stream. The
// transport guarantees in-order delivery per call.
type StreamEvent struct {
	Type        StreamEventType `json:"type"`
	Delta       string          `json:"delta,omitempty"`        // chunk
	Data        json.RawMessage `json:"data,omitempty"`         // full
	Detail      string          `json:"detail,omitempty"`       // error
	ContextUsed bool            `json:"context_used,omitempty"` // status
}
