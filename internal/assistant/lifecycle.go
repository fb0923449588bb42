package assistant

import (
	"sync"

	"github.com/google/uuid"
)

// RequestContext identifies one turn. Exactly one context is current at
// a time; asynchronous continuations compare their context's ID against
// the tracker before touching shared state, so superseded work becomes
// a no-op without needing to abort in-flight network calls.
type RequestContext struct {
	ID          string
	Mode        Mode
	PendingText string
}

// RequestTracker issues request ids and tracks which one is current.
// Safe for concurrent use.
type RequestTracker struct {
	mu      sync.Mutex
	current *RequestContext
}

// NewRequestTracker returns a tracker with no current request.
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{}
}

// Begin mints a new request context and makes it current, implicitly
// invalidating any previous one.
func (t *RequestTracker) Begin(mode Mode, pendingText string) *RequestContext {
	t.mu.Lock()
	defer t.mu.Unlock()

	rc := &RequestContext{
		ID:          uuid.NewString(),
		Mode:        mode,
		PendingText: pendingText,
	}
	t.current = rc
	return rc
}

// IsCurrent reports whether the given request id is still current.
func (t *RequestTracker) IsCurrent(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && t.current.ID == id
}

// Cancel invalidates the current request and returns it, or nil if no
// request was current.
func (t *RequestTracker) Cancel() *RequestContext {
	t.mu.Lock()
	defer t.mu.Unlock()

	rc := t.current
	t.current = nil
	return rc
}

// SetMode updates the mode of the current request. Used when the
// classifier overrides the optimistic mode guess mid-turn. The request
// identity is unchanged.
func (t *RequestTracker) SetMode(id string, mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil && t.current.ID == id {
		t.current.Mode = mode
	}
}

// Current returns the current request context, or nil.
func (t *RequestTracker) Current() *RequestContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
