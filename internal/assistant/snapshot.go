package assistant

import "strconv"

// ModeSnapshot is the UI-facing view of one mode's state.
type ModeSnapshot struct {
	Draft              string       `json:"draft"`
	Attachments        []Attachment `json:"attachments,omitempty"`
	Messages           []Message    `json:"messages,omitempty"`
	Loading            bool         `json:"loading"`
	Progress           string       `json:"progress,omitempty"`
	Error              string       `json:"error,omitempty"`
	PermissionRequired bool         `json:"permission_required"`
}

// Snapshot is a point-in-time copy of everything the UI renders. Maps
// and slices are copies; mutating a snapshot never affects the
// controller.
type Snapshot struct {
	Mode                Mode            `json:"mode"`
	Add                 ModeSnapshot    `json:"add"`
	Delete              ModeSnapshot    `json:"delete"`
	AddPreview          *AddPreview     `json:"add_preview,omitempty"`
	AddSelection        map[int]bool    `json:"add_selection,omitempty"`
	SelectedAddCount    int             `json:"selected_add_count"`
	DeletePreview       *DeletePreview  `json:"delete_preview,omitempty"`
	DeleteSelection     map[string]bool `json:"delete_selection,omitempty"`
	SelectedDeleteCount int             `json:"selected_delete_count"`
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Mode:                c.mode,
		Add:                 modeSnapshot(c.modes[ModeAdd]),
		Delete:              modeSnapshot(c.modes[ModeDelete]),
		SelectedAddCount:    selectedAddCount(c.addPreview, c.addSelection),
		SelectedDeleteCount: selectedDeleteCount(c.deletePreview, c.deleteSelection),
	}
	if c.addPreview != nil {
		preview := *c.addPreview
		preview.Items = append([]AddPreviewItem(nil), c.addPreview.Items...)
		snap.AddPreview = &preview
		snap.AddSelection = copyIntMap(c.addSelection)
	}
	if c.deletePreview != nil {
		preview := *c.deletePreview
		preview.Groups = append([]DeletePreviewGroup(nil), c.deletePreview.Groups...)
		snap.DeletePreview = &preview
		snap.DeleteSelection = copyStringMap(c.deleteSelection)
	}
	return snap
}

func modeSnapshot(st *modeState) ModeSnapshot {
	return ModeSnapshot{
		Draft:              st.draft,
		Attachments:        append([]Attachment(nil), st.attachments...),
		Messages:           st.conversation.Messages(),
		Loading:            st.loading,
		Progress:           st.progress,
		Error:              st.errMsg,
		PermissionRequired: st.permission != nil,
	}
}

func copyIntMap(m map[int]bool) map[int]bool {
	if m == nil {
		return nil
	}
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
