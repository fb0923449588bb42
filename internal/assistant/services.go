package assistant

import "context"

// PreviewAddRequest carries the parameters of one streaming add-preview
// call. Text and AttachmentDataURLs are snapshotted when the turn starts
// so a permission-confirmed resume replays exactly the same request.
type PreviewAddRequest struct {
	Text               string   `json:"text"`
	AttachmentDataURLs []string `json:"attachment_data_urls,omitempty"`
	Effort             string   `json:"effort,omitempty"`
	Model              string   `json:"model,omitempty"`
	RequestID          string   `json:"request_id"`
	ContextConfirmed   bool     `json:"context_confirmed,omitempty"`
}

// PreviewDeleteRequest carries the parameters of one delete-preview call.
// StartDate and EndDate bound the search to the calendar range the user
// is currently looking at.
type PreviewDeleteRequest struct {
	Text             string `json:"text"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
	Effort           string `json:"effort,omitempty"`
	Model            string `json:"model,omitempty"`
	RequestID        string `json:"request_id"`
	ContextConfirmed bool   `json:"context_confirmed,omitempty"`
}

// StreamHandler receives add-preview stream events in arrival order.
type StreamHandler func(ev StreamEvent)

// NLPService is the external AI backend consumed by the controller.
type NLPService interface {
	// Classify decides which mode a turn's text belongs to, or whether
	// it is off-topic or ambiguous.
	Classify(ctx context.Context, text string, hasAttachments bool, requestID string) (ClassifyResult, error)

	// PreviewAdd streams a drafted add preview. onEvent is invoked for
	// each tagged event in order; PreviewAdd returns once the stream
	// has ended.
	PreviewAdd(ctx context.Context, req PreviewAddRequest, onEvent StreamHandler) error

	// PreviewDelete returns candidate deletion groups in a single call.
	PreviewDelete(ctx context.Context, req PreviewDeleteRequest) (*DeletePreview, error)

	// Interrupt asks the backend to abandon the identified request.
	// Best effort: local state does not depend on it succeeding.
	Interrupt(ctx context.Context, requestID string) error

	// ResetContext clears the backend's server-side conversation memory.
	// Best effort.
	ResetContext(ctx context.Context) error
}

// CalendarService commits approved changes.
type CalendarService interface {
	// CreateEvents creates the given drafts in one batch call.
	CreateEvents(ctx context.Context, items []AddPreviewItem) ([]CreatedEvent, error)

	// DeleteEvents deletes locally-stored events by numeric id in one
	// batch call.
	DeleteEvents(ctx context.Context, ids []int64) error

	// DeleteExternalEvent deletes a single externally-synced event.
	DeleteExternalEvent(ctx context.Context, id string) error
}

// TurnRecorder receives notable moments of a turn for persistence.
// Implementations must be best effort: failures are logged by the
// implementation and never fail the turn. A nil recorder is valid.
type TurnRecorder interface {
	RecordUserMessage(mode Mode, text string, attachments int)
	RecordAssistantMessage(mode Mode, text string)
	RecordClassification(text string, result ClassifyResult)
	RecordPermission(mode Mode, approved bool)
	RecordPreview(mode Mode, items int)
	RecordApply(mode Mode, created, deleted int)
	RecordInterrupt(requestID string)
	RecordError(mode Mode, message string)
}
