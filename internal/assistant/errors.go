package assistant

import "errors"

var (
	// ErrEmptyInput is returned when a preview is requested with no text
	// and no attachments. No network call is made.
	ErrEmptyInput = errors.New("nothing to preview: empty input")

	// ErrNoSelection is returned when apply is requested with nothing
	// selected. No network call is made.
	ErrNoSelection = errors.New("no items selected")

	// ErrTooManyAttachments is returned when adding an attachment past
	// the per-draft limit.
	ErrTooManyAttachments = errors.New("too many attachments")

	// ErrAttachmentTooLarge is returned when an attachment exceeds the
	// per-image size limit.
	ErrAttachmentTooLarge = errors.New("attachment too large")

	// ErrInvalidMode is returned when a caller names an unknown mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrNoPendingPermission is returned when confirming or denying a
	// permission gate that is not open.
	ErrNoPendingPermission = errors.New("no pending permission request")

	// ErrItemNotFound is returned when editing a preview item that does
	// not exist.
	ErrItemNotFound = errors.New("preview item not found")
)

// User-facing messages for classification rejections. These are not
// errors from the transport; the turn simply does not proceed.
const (
	// MsgComplexRequest is shown when the text mixes add and delete intents.
	MsgComplexRequest = "Please ask me to add or delete events in separate requests."
	// MsgUnrelatedRequest is shown when the text is unrelated to scheduling.
	MsgUnrelatedRequest = "I can only help with adding or deleting calendar events."
	// MsgPermissionDenied is shown after the user declines calendar access.
	MsgPermissionDenied = "Calendar access was declined, so I couldn't finish this request."
	// MsgInterrupted is left in the status line after the user cancels
	// an in-flight turn; the next turn replaces it.
	MsgInterrupted = "Request cancelled."
)
