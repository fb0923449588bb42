// Package web serves the Aical browser interface: static assets, a
// transcripts API, and one WebSocket per client driving an assistant
// controller.
//
// # WebSocket Protocol Overview
//
// All messages are JSON-encoded with the following structure:
//
//	{
//	    "type": "message_type",
//	    "data": { ... }  // Optional, type-specific payload
//	}
package web

import "encoding/json"

// WSMessage represents a WebSocket message between frontend and backend.
// All WebSocket communication uses this envelope format.
type WSMessage struct {
	Type string          `json:"type"`           // Message type (see WSMsgType* constants)
	Data json.RawMessage `json:"data,omitempty"` // Type-specific payload
}

// ParseMessage parses raw message bytes into a WSMessage.
func ParseMessage(data []byte) (WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// =============================================================================
// Frontend → Backend Message Types
// =============================================================================

const (
	// WSMsgTypeSetMode switches the active editing mode.
	// Data: { "mode": "add" | "delete" }
	WSMsgTypeSetMode = "set_mode"

	// WSMsgTypeSetDraft updates the draft text of the active mode.
	// Data: { "text": string }
	WSMsgTypeSetDraft = "set_draft"

	// WSMsgTypeSetDateRange sets the visible calendar range used to bound
	// delete previews.
	// Data: { "start": string, "end": string }
	WSMsgTypeSetDateRange = "set_date_range"

	// WSMsgTypeAddAttachment attaches an image to the active draft.
	// Data: { "name": string, "data_url": string }
	WSMsgTypeAddAttachment = "add_attachment"

	// WSMsgTypeRemoveAttachment removes a previously added attachment.
	// Data: { "id": string }
	WSMsgTypeRemoveAttachment = "remove_attachment"

	// WSMsgTypePreview submits the current draft for a preview turn.
	// Data: none
	WSMsgTypePreview = "preview"

	// WSMsgTypeToggleAddItem toggles selection of one proposed event.
	// Data: { "index": int }
	WSMsgTypeToggleAddItem = "toggle_add_item"

	// WSMsgTypeToggleDeleteGroup toggles selection of one deletion group.
	// Data: { "key": string }
	WSMsgTypeToggleDeleteGroup = "toggle_delete_group"

	// WSMsgTypeUpdateItem edits a proposed event in place.
	// Data: { "index": int, "item": AddPreviewItem }
	WSMsgTypeUpdateItem = "update_item"

	// WSMsgTypeApply commits the selected preview items to the calendar.
	// Data: none
	WSMsgTypeApply = "apply"

	// WSMsgTypeInterrupt cancels the in-flight preview turn.
	// Data: none
	WSMsgTypeInterrupt = "interrupt"

	// WSMsgTypePermissionAnswer answers a pending context permission gate.
	// Data: { "approved": bool }
	WSMsgTypePermissionAnswer = "permission_answer"

	// WSMsgTypeReset clears both modes and resets the backend context.
	// Data: none
	WSMsgTypeReset = "reset"

	// WSMsgTypeKeepalive is an application-level keepalive with timestamp.
	// Data: { "client_time": int64 (Unix ms) }
	WSMsgTypeKeepalive = "keepalive"
)

// =============================================================================
// Backend → Frontend Message Types
// =============================================================================

const (
	// WSMsgTypeConnected confirms the WebSocket connection is established.
	// Data: { "client_id": string, "transcript_id": string }
	WSMsgTypeConnected = "connected"

	// WSMsgTypeState carries a full controller snapshot. Sent after every
	// state change; the frontend renders it wholesale.
	// Data: RenderedSnapshot
	WSMsgTypeState = "state"

	// WSMsgTypeApplied reports a successful apply.
	// Data: { "created": []CreatedEvent, "deleted_ids": []string }
	WSMsgTypeApplied = "applied"

	// WSMsgTypeError reports an error to the client.
	// Data: { "message": string }
	WSMsgTypeError = "error"

	// WSMsgTypeKeepaliveAck responds to a keepalive with server timestamp.
	// Data: { "client_time": int64, "server_time": int64 }
	WSMsgTypeKeepaliveAck = "keepalive_ack"
)
