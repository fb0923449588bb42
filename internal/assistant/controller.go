package assistant

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Attachment limits for a mode's draft.
const (
	// MaxAttachments is the maximum number of images per draft.
	MaxAttachments = 5
	// MaxAttachmentBytes is the maximum decoded size of one image.
	MaxAttachmentBytes = 2_621_440 // 2.5 MB
)

// Progress labels surfaced to the UI while a turn is in flight.
const (
	progressClassifying = "Classifying request"
	progressDrafting    = "Drafting events"
	progressSearching   = "Finding events"
	progressReading     = "Reading calendar"
)

// permissionRequest records a suspended turn's parameters so a confirm
// replays exactly the same request, regardless of what the user typed
// in the meantime.
type permissionRequest struct {
	mode           Mode
	prompt         string
	attachmentURLs []string
	pendingText    string
}

// modeState is the per-mode slice of controller state. Each mode owns
// its state exclusively; switching modes migrates data, it never
// mutates both modes from one turn.
type modeState struct {
	conversation *Conversation
	draft        string
	attachments  []Attachment
	loading      bool
	progress     string
	errMsg       string
	permission   *permissionRequest
}

// Options configures a Controller.
type Options struct {
	NLP      NLPService
	Calendar CalendarService

	// Model and Effort are forwarded to the NLP backend on every
	// preview call.
	Model  string
	Effort string

	// Conversation bounds; zero values use the defaults.
	MaxMessages int
	CharBudget  int

	// Recorder receives turn events for persistence. Optional.
	Recorder TurnRecorder

	// OnUpdate is invoked with a fresh snapshot after every state
	// change. It is called with internal locks held and must not call
	// back into the controller; hand the snapshot off and return.
	OnUpdate func(Snapshot)

	Logger *slog.Logger
}

// Controller manages one cancellable multi-turn conversation per
// editing mode. All mutation is serialized by an internal mutex;
// every asynchronous continuation re-checks the current request id
// after each suspension point, so work superseded by a newer turn
// becomes a no-op.
type Controller struct {
	mu      sync.Mutex
	mode    Mode
	modes   map[Mode]*modeState
	tracker *RequestTracker

	nlp      NLPService
	calendar CalendarService
	model    string
	effort   string

	addPreview      *AddPreview
	addSelection    map[int]bool
	deletePreview   *DeletePreview
	deleteSelection map[string]bool

	// Visible calendar range, bounds delete-preview searches.
	rangeStart string
	rangeEnd   string

	recorder TurnRecorder
	onUpdate func(Snapshot)
	logger   *slog.Logger
}

// NewController creates a controller in add mode with empty state.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newState := func() *modeState {
		return &modeState{conversation: NewConversation(opts.MaxMessages, opts.CharBudget)}
	}
	return &Controller{
		mode: ModeAdd,
		modes: map[Mode]*modeState{
			ModeAdd:    newState(),
			ModeDelete: newState(),
		},
		tracker:  NewRequestTracker(),
		nlp:      opts.NLP,
		calendar: opts.Calendar,
		model:    opts.Model,
		effort:   opts.Effort,
		recorder: opts.Recorder,
		onUpdate: opts.OnUpdate,
		logger:   logger,
	}
}

// SetMode switches the active editing mode. Per-mode state is left
// untouched; the user can switch back and forth freely.
func (c *Controller) SetMode(mode Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.notifyLocked()
	return nil
}

// SetDraft replaces the active mode's draft text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes[c.mode].draft = text
}

// SetDateRange sets the calendar range the user is currently viewing.
// Delete previews search within this range.
func (c *Controller) SetDateRange(start, end string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rangeStart, c.rangeEnd = start, end
}

// AddAttachment attaches an image to the active mode's draft.
func (c *Controller) AddAttachment(name, dataURL string) (Attachment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.modes[c.mode]
	if len(st.attachments) >= MaxAttachments {
		return Attachment{}, ErrTooManyAttachments
	}
	if attachmentDecodedSize(dataURL) > MaxAttachmentBytes {
		return Attachment{}, ErrAttachmentTooLarge
	}
	att := Attachment{ID: uuid.NewString(), Name: name, DataURL: dataURL}
	st.attachments = append(st.attachments, att)
	c.notifyLocked()
	return att, nil
}

// RemoveAttachment detaches an image from the active mode's draft.
func (c *Controller) RemoveAttachment(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.modes[c.mode]
	for i, att := range st.attachments {
		if att.ID == id {
			st.attachments = append(st.attachments[:i], st.attachments[i+1:]...)
			c.notifyLocked()
			return
		}
	}
}

// Preview runs one turn: the draft is staged into the conversation, the
// text is classified, and depending on the verdict the turn is routed
// to the add stream or the delete call, rejected, or suspended on a
// permission gate. Preview blocks until the turn reaches one of those
// outcomes; callers drive it from their own goroutine.
//
// Transport failures are surfaced through the mode's error string, not
// the return value. The returned error reports only local validation.
func (c *Controller) Preview(ctx context.Context) error {
	c.mu.Lock()
	mode := c.mode
	st := c.modes[mode]
	text := strings.TrimSpace(st.draft)
	if text == "" && len(st.attachments) == 0 {
		st.errMsg = ErrEmptyInput.Error()
		c.notifyLocked()
		c.mu.Unlock()
		return ErrEmptyInput
	}

	attachments := st.attachments
	st.conversation.AppendUser(text, attachments)
	st.draft = ""
	st.attachments = nil
	st.errMsg = ""
	st.loading = true
	st.progress = progressClassifying
	rc := c.tracker.Begin(mode, text)
	if c.recorder != nil {
		c.recorder.RecordUserMessage(mode, text, len(attachments))
	}
	c.notifyLocked()
	c.mu.Unlock()

	result, err := c.nlp.Classify(ctx, text, len(attachments) > 0, rc.ID)

	c.mu.Lock()
	if !c.tracker.IsCurrent(rc.ID) {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.failTurnLocked(rc, err.Error())
		c.mu.Unlock()
		return nil
	}
	if c.recorder != nil {
		c.recorder.RecordClassification(text, result)
	}

	switch result {
	case ClassifyComplex, ClassifyGarbage:
		msg := MsgComplexRequest
		if result == ClassifyGarbage {
			msg = MsgUnrelatedRequest
		}
		st := c.modes[rc.Mode]
		st.conversation.ExcludeLastUserMessage(text)
		st.loading = false
		st.progress = ""
		st.errMsg = msg
		c.endTurnLocked(rc.ID)
		c.notifyLocked()
		c.mu.Unlock()
		return nil

	case ClassifyAdd, ClassifyDelete:
		resolved := ModeAdd
		if result == ClassifyDelete {
			resolved = ModeDelete
		}
		if resolved != rc.Mode {
			c.migrateLocked(rc, resolved)
		}
		prompt := c.modes[resolved].conversation.SerializeForPrompt()
		urls := attachmentURLs(attachments)
		c.mu.Unlock()

		if resolved == ModeAdd {
			c.runAddPreview(ctx, rc, prompt, urls, false)
		} else {
			c.runDeletePreview(ctx, rc, prompt, false)
		}
		return nil

	default:
		c.failTurnLocked(rc, "unexpected classification: "+string(result))
		c.mu.Unlock()
		return nil
	}
}

// migrateLocked moves the pending user message from the optimistic mode
// to the classifier's verdict, preserving attachments and transferring
// the loading flags. The UI shows the user's mode at typing time, but
// only the classifier decides intent.
func (c *Controller) migrateLocked(rc *RequestContext, to Mode) {
	src := c.modes[rc.Mode]
	dst := c.modes[to]

	if msg, ok := src.conversation.RemoveLastUserMessage(rc.PendingText); ok {
		dst.conversation.Append(msg)
	}
	dst.loading = src.loading
	dst.progress = src.progress
	dst.errMsg = ""
	src.loading = false
	src.progress = ""

	c.mode = to
	c.tracker.SetMode(rc.ID, to)
	c.logger.Debug("turn migrated between modes",
		"request_id", rc.ID, "from", string(rc.Mode), "to", string(to))
}

// runAddPreview drives the streaming add-preview call. Every stream
// callback re-checks the request id: a single call delivers many
// callbacks over time, any of which may arrive after cancellation.
func (c *Controller) runAddPreview(ctx context.Context, rc *RequestContext, prompt string, urls []string, confirmed bool) {
	c.setProgress(rc.ID, progressDrafting)

	asm := NewAssembler()
	req := PreviewAddRequest{
		Text:               prompt,
		AttachmentDataURLs: urls,
		Effort:             c.effort,
		Model:              c.model,
		RequestID:          rc.ID,
		ContextConfirmed:   confirmed,
	}

	streamErr := ""
	err := c.nlp.PreviewAdd(ctx, req, func(ev StreamEvent) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.tracker.IsCurrent(rc.ID) {
			return
		}
		st := c.modes[rc.Mode]
		switch ev.Type {
		case StreamEventStatus:
			if ev.ContextUsed {
				st.progress = progressReading
			}
		case StreamEventPermissionRequired:
			c.suspendLocked(rc, prompt, urls)
		case StreamEventResetBuffer:
			asm.Reset()
		case StreamEventChunk:
			asm.AppendChunk(ev.Delta)
			if content, changed := asm.Content(); changed {
				st.conversation.UpsertAssistant(content)
			}
		case StreamEventFull:
			asm.ReplaceFull(ev.Data)
			if content, changed := asm.Content(); changed {
				st.conversation.UpsertAssistant(content)
			}
		case StreamEventError:
			streamErr = ev.Detail
		}
		c.notifyLocked()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracker.IsCurrent(rc.ID) {
		return
	}
	st := c.modes[rc.Mode]
	if err != nil {
		c.failTurnLocked(rc, err.Error())
		return
	}
	if streamErr != "" {
		c.failTurnLocked(rc, streamErr)
		return
	}
	if st.permission != nil {
		// Suspended on the permission gate; the turn resumes via
		// ConfirmPermission with a fresh request id.
		c.endTurnLocked(rc.ID)
		c.notifyLocked()
		return
	}

	final := asm.Final()
	if final.Content != "" {
		st.conversation.UpsertAssistant(final.Content)
		if c.recorder != nil {
			c.recorder.RecordAssistantMessage(rc.Mode, final.Content)
		}
	}
	if len(final.Items) > 0 {
		c.addPreview = final
		c.addSelection = newAddSelection(final.Items)
		if c.recorder != nil {
			c.recorder.RecordPreview(rc.Mode, len(final.Items))
		}
	} else {
		c.addPreview = nil
		c.addSelection = nil
	}
	st.loading = false
	st.progress = ""
	c.endTurnLocked(rc.ID)
	c.notifyLocked()
}

// runDeletePreview drives the single non-streaming delete-preview call.
func (c *Controller) runDeletePreview(ctx context.Context, rc *RequestContext, prompt string, confirmed bool) {
	c.setProgress(rc.ID, progressSearching)

	c.mu.Lock()
	req := PreviewDeleteRequest{
		Text:             prompt,
		StartDate:        c.rangeStart,
		EndDate:          c.rangeEnd,
		Effort:           c.effort,
		Model:            c.model,
		RequestID:        rc.ID,
		ContextConfirmed: confirmed,
	}
	c.mu.Unlock()

	resp, err := c.nlp.PreviewDelete(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracker.IsCurrent(rc.ID) {
		return
	}
	st := c.modes[rc.Mode]
	if err != nil {
		c.failTurnLocked(rc, err.Error())
		return
	}
	if resp.PermissionRequired {
		c.suspendLocked(rc, prompt, nil)
		c.endTurnLocked(rc.ID)
		c.notifyLocked()
		return
	}
	if resp.Content != "" {
		st.conversation.AppendAssistant(resp.Content)
		if c.recorder != nil {
			c.recorder.RecordAssistantMessage(rc.Mode, resp.Content)
		}
	}
	if len(resp.Groups) > 0 {
		c.deletePreview = resp
		c.deleteSelection = newDeleteSelection(resp.Groups)
		if c.recorder != nil {
			c.recorder.RecordPreview(rc.Mode, len(resp.Groups))
		}
	} else {
		c.deletePreview = nil
		c.deleteSelection = nil
	}
	st.loading = false
	st.progress = ""
	c.endTurnLocked(rc.ID)
	c.notifyLocked()
}

// suspendLocked opens the permission gate for the request's mode,
// recording the exact request parameters for a deterministic resume.
func (c *Controller) suspendLocked(rc *RequestContext, prompt string, urls []string) {
	st := c.modes[rc.Mode]
	st.permission = &permissionRequest{
		mode:           rc.Mode,
		prompt:         prompt,
		attachmentURLs: urls,
		pendingText:    rc.PendingText,
	}
	st.loading = false
	st.progress = ""
}

// ConfirmPermission resumes a suspended turn, replaying the recorded
// request with the confirmation flag set. Classification is bypassed:
// the mode was already decided when the turn was first routed.
func (c *Controller) ConfirmPermission(ctx context.Context) error {
	c.mu.Lock()
	st := c.modes[c.mode]
	pr := st.permission
	if pr == nil {
		c.mu.Unlock()
		return ErrNoPendingPermission
	}
	st.permission = nil
	st.loading = true
	st.errMsg = ""
	rc := c.tracker.Begin(pr.mode, pr.pendingText)
	if c.recorder != nil {
		c.recorder.RecordPermission(pr.mode, true)
	}
	c.notifyLocked()
	c.mu.Unlock()

	if pr.mode == ModeAdd {
		c.runAddPreview(ctx, rc, pr.prompt, pr.attachmentURLs, true)
	} else {
		c.runDeletePreview(ctx, rc, pr.prompt, true)
	}
	return nil
}

// DenyPermission closes the gate without retrying and marks the pending
// message as prompt-excluded.
func (c *Controller) DenyPermission() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.modes[c.mode]
	pr := st.permission
	if pr == nil {
		return ErrNoPendingPermission
	}
	st.permission = nil
	st.errMsg = MsgPermissionDenied
	if pr.pendingText != "" {
		st.conversation.ExcludeLastUserMessage(pr.pendingText)
	}
	if c.recorder != nil {
		c.recorder.RecordPermission(pr.mode, false)
	}
	c.notifyLocked()
	return nil
}

// Interrupt cancels the current turn. Local state is cleaned up
// immediately; the remote interrupt is fire-and-forget, and a failure
// there is logged as a soft error.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	rc := c.tracker.Cancel()
	if rc == nil {
		c.mu.Unlock()
		return
	}
	st := c.modes[rc.Mode]
	st.loading = false
	// Cancellation is not an error; leave a status line instead.
	st.progress = MsgInterrupted
	if rc.PendingText != "" {
		st.conversation.ExcludeLastUserMessage(rc.PendingText)
	}
	if c.recorder != nil {
		c.recorder.RecordInterrupt(rc.ID)
	}
	c.notifyLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.nlp.Interrupt(ctx, rc.ID); err != nil {
			c.logger.Warn("remote interrupt failed", "request_id", rc.ID, "error", err)
		}
	}()
}

// ToggleAddItem flips one add-preview selection entry.
func (c *Controller) ToggleAddItem(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addPreview == nil || index < 0 || index >= len(c.addPreview.Items) {
		return
	}
	if c.addSelection == nil {
		c.addSelection = make(map[int]bool)
	}
	c.addSelection[index] = !c.addSelection[index]
	c.notifyLocked()
}

// ToggleDeleteGroup flips one delete-preview selection entry.
func (c *Controller) ToggleDeleteGroup(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deletePreview == nil {
		return
	}
	if c.deleteSelection == nil {
		c.deleteSelection = make(map[string]bool)
	}
	c.deleteSelection[key] = !c.deleteSelection[key]
	c.notifyLocked()
}

// UpdateItem replaces one add-preview item in place, keeping the rest
// of the batch and its selection untouched. Used by the full edit form
// for a single proposed event.
func (c *Controller) UpdateItem(index int, item AddPreviewItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addPreview == nil || index < 0 || index >= len(c.addPreview.Items) {
		return ErrItemNotFound
	}
	c.addPreview.Items[index] = item
	c.notifyLocked()
	return nil
}

// ApplyResult reports what an apply committed.
type ApplyResult struct {
	Created    []CreatedEvent `json:"created,omitempty"`
	DeletedIDs []string       `json:"deleted_ids,omitempty"`
}

// Apply commits the current selection through the calendar service. On
// success all per-turn state for the mode is cleared and the backend's
// conversation context is reset best-effort; on failure the preview and
// selection survive so the user can retry without re-drafting.
func (c *Controller) Apply(ctx context.Context) (*ApplyResult, error) {
	c.mu.Lock()
	mode := c.mode
	if mode == ModeAdd {
		items := selectedAddItems(c.addPreview, c.addSelection)
		if len(items) == 0 {
			c.mu.Unlock()
			return nil, ErrNoSelection
		}
		c.mu.Unlock()

		created, err := c.calendar.CreateEvents(ctx, items)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.modes[ModeAdd].errMsg = err.Error()
			c.notifyLocked()
			return nil, err
		}
		c.addPreview = nil
		c.addSelection = nil
		c.clearModeLocked(ModeAdd)
		if c.recorder != nil {
			c.recorder.RecordApply(ModeAdd, len(created), 0)
		}
		c.notifyLocked()
		c.resetContextAsync()
		return &ApplyResult{Created: created}, nil
	}

	numeric, external := selectedDeleteIDs(c.deletePreview, c.deleteSelection)
	if len(numeric) == 0 && len(external) == 0 {
		c.mu.Unlock()
		return nil, ErrNoSelection
	}
	c.mu.Unlock()

	// One batch call for local ids, then each external id in turn.
	// Sequential keeps backend load bounded and error attribution
	// simple.
	var deleted []string
	if len(numeric) > 0 {
		if err := c.calendar.DeleteEvents(ctx, numeric); err != nil {
			return nil, c.applyFailed(ModeDelete, err)
		}
		for _, id := range numeric {
			deleted = append(deleted, formatInt(id))
		}
	}
	for _, id := range external {
		if err := c.calendar.DeleteExternalEvent(ctx, id); err != nil {
			return nil, c.applyFailed(ModeDelete, err)
		}
		deleted = append(deleted, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletePreview = nil
	c.deleteSelection = nil
	c.clearModeLocked(ModeDelete)
	if c.recorder != nil {
		c.recorder.RecordApply(ModeDelete, 0, len(deleted))
	}
	c.notifyLocked()
	c.resetContextAsync()
	return &ApplyResult{DeletedIDs: deleted}, nil
}

// applyFailed records an apply error in the mode's error string and
// returns it. Preview and selection are intentionally left intact.
func (c *Controller) applyFailed(mode Mode, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes[mode].errMsg = err.Error()
	if c.recorder != nil {
		c.recorder.RecordError(mode, err.Error())
	}
	c.notifyLocked()
	return err
}

// ResetConversation discards the active mode's conversation, draft, and
// preview state, and asks the backend to forget its context.
func (c *Controller) ResetConversation() {
	c.mu.Lock()
	mode := c.mode
	c.clearModeLocked(mode)
	if mode == ModeAdd {
		c.addPreview = nil
		c.addSelection = nil
	} else {
		c.deletePreview = nil
		c.deleteSelection = nil
	}
	c.notifyLocked()
	c.mu.Unlock()
	c.resetContextAsync()
}

// clearModeLocked resets a mode's conversation, draft, attachments, and
// transient flags.
func (c *Controller) clearModeLocked(mode Mode) {
	st := c.modes[mode]
	st.conversation.Reset()
	st.draft = ""
	st.attachments = nil
	st.errMsg = ""
	st.progress = ""
	st.loading = false
	st.permission = nil
}

// resetContextAsync clears the backend conversation memory without
// blocking the caller. Failure is swallowed: it is cleanup, not a
// correctness requirement.
func (c *Controller) resetContextAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.nlp.ResetContext(ctx); err != nil {
			c.logger.Debug("context reset failed", "error", err)
		}
	}()
}

// failTurnLocked ends a turn on a transport error: the pending message
// is excluded from future prompts, all preview state is cleared, and
// the error is surfaced through the mode's error string.
func (c *Controller) failTurnLocked(rc *RequestContext, msg string) {
	st := c.modes[rc.Mode]
	if rc.PendingText != "" {
		st.conversation.ExcludeLastUserMessage(rc.PendingText)
	}
	st.loading = false
	st.progress = ""
	st.errMsg = msg
	c.addPreview = nil
	c.addSelection = nil
	c.deletePreview = nil
	c.deleteSelection = nil
	if c.recorder != nil {
		c.recorder.RecordError(rc.Mode, msg)
	}
	c.endTurnLocked(rc.ID)
	c.notifyLocked()
	c.logger.Warn("turn failed", "request_id", rc.ID, "mode", string(rc.Mode), "error", msg)
}

// endTurnLocked retires a request id if it is still current.
func (c *Controller) endTurnLocked(id string) {
	if c.tracker.IsCurrent(id) {
		c.tracker.Cancel()
	}
}

// setProgress updates the progress label if the request is still
// current.
func (c *Controller) setProgress(id, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracker.IsCurrent(id) {
		return
	}
	if rc := c.tracker.Current(); rc != nil {
		c.modes[rc.Mode].progress = label
		c.notifyLocked()
	}
}

func (c *Controller) notifyLocked() {
	if c.onUpdate != nil {
		c.onUpdate(c.snapshotLocked())
	}
}

// attachmentURLs extracts the data URLs from an attachment snapshot.
func attachmentURLs(attachments []Attachment) []string {
	if len(attachments) == 0 {
		return nil
	}
	urls := make([]string, len(attachments))
	for i, a := range attachments {
		urls[i] = a.DataURL
	}
	return urls
}

// attachmentDecodedSize estimates the decoded byte size of a base64
// data URL.
func attachmentDecodedSize(dataURL string) int {
	idx := strings.Index(dataURL, ",")
	if idx < 0 {
		return len(dataURL)
	}
	return base64.StdEncoding.DecodedLen(len(dataURL) - idx - 1)
}
