package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps every state event it receives, normalized, so examples
// and tests can inspect what a State reported. Err, when set, is returned
// from Notify after the event is kept.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify keeps the event.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// Len returns the number of captured events.
func (h *CaptureHook) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Events)
}

// Verbs returns the captured verbs in arrival order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.Events))
	for _, event := range h.Events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// Paths returns the dot paths touched by captured state events, in arrival
// order. The root is reported as the empty path; batch events are skipped.
func (h *CaptureHook) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	paths := make([]string, 0, len(h.Events))
	for _, event := range h.Events {
		if event.ObjectType != ObjectTypeState {
			continue
		}
		if event.ObjectID == RootObjectID {
			paths = append(paths, "")
			continue
		}
		paths = append(paths, event.ObjectID)
	}
	return paths
}

// Last returns the most recent event.
func (h *CaptureHook) Last() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Events) == 0 {
		return Event{}, false
	}
	return h.Events[len(h.Events)-1], true
}

// Reset drops the captured events.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = nil
}
